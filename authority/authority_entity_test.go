package authority_test

import (
	"staffhub/authority"
	"testing"

	. "github.com/onsi/gomega"
)

func TestPermissions(t *testing.T) {
	RegisterTestingT(t)

	t.Run("HasRole should match case insensitively", func(t *testing.T) {
		perms := authority.Permissions{authority.RoleHr}
		Expect(perms.HasRole("hr")).To(BeTrue())
		Expect(perms.HasRole("HR")).To(BeTrue())
		Expect(perms.HasRole(authority.RoleAdmin)).To(BeFalse())
		Expect(authority.Permissions{}.HasRole(authority.RoleHr)).To(BeFalse())
	})

	t.Run("HasAnyRole should match any of the given roles", func(t *testing.T) {
		perms := authority.Permissions{authority.RoleEmployee}
		Expect(perms.HasAnyRole(authority.RoleAdmin, authority.RoleEmployee)).To(BeTrue())
		Expect(perms.HasAnyRole(authority.RoleAdmin, authority.RoleHr)).To(BeFalse())
		Expect(perms.HasAnyRole()).To(BeFalse())
	})

	t.Run("HasGlobalViewRole should be true for admin and hr only", func(t *testing.T) {
		Expect(authority.Permissions{authority.RoleAdmin}.HasGlobalViewRole()).To(BeTrue())
		Expect(authority.Permissions{authority.RoleHr}.HasGlobalViewRole()).To(BeTrue())
		Expect(authority.Permissions{authority.RolePm}.HasGlobalViewRole()).To(BeFalse())
		Expect(authority.Permissions{authority.RoleEmployee}.HasGlobalViewRole()).To(BeFalse())
		Expect(authority.Permissions{authority.PermResetSecret}.HasGlobalViewRole()).To(BeFalse())
	})
}
