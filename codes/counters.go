package codes

import (
	"fmt"
	"staffhub/idgen"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	counterIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})
)

// Counter holds the last minted number of one code namespace
type Counter struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Namespace string `json:"namespace" gorm:"unique_index:uni_counter_namespace"`
	Count     int    `json:"count"`
}

// NextCode mints the next sequential code of the namespace, e.g. NextCode(tx, "employee:hr", "HRM") => "HRM004".
// The counter row is bumped with a single atomic increment; concurrent transactions serialize on the
// row lock, so no two callers ever observe the same count.
func NextCode(tx *gorm.DB, namespace, prefix string) (string, error) {
	db := tx.Model(&Counter{}).Where("namespace = ?", namespace).
		Update("count", gorm.Expr("count + ?", 1))
	if db.Error != nil {
		return "", db.Error
	}

	if db.RowsAffected == 0 {
		// first code of the namespace
		counter := Counter{ID: idgen.NextID(counterIdWorker), Namespace: namespace, Count: 1}
		if err := tx.Create(&counter).Error; err != nil {
			// the unique index turns a concurrent first use into an error instead of a duplicate code
			return "", err
		}
		return fmt.Sprintf("%s%03d", prefix, counter.Count), nil
	}

	counter := Counter{}
	if err := tx.Where("namespace = ?", namespace).First(&counter).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%03d", prefix, counter.Count), nil
}
