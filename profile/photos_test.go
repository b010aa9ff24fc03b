package profile

import (
	"bytes"
	"io"
	"io/ioutil"
	"staffhub/bizerror"
	"staffhub/client/s3"
	"staffhub/session"
	"testing"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

func TestDetailPhoto(t *testing.T) {
	s3.GetObjectFunc = func(key string, s *session.Session, o ...oss.Option) (io.ReadCloser, error) {
		return ioutil.NopCloser(bytes.NewReader([]byte(key + "=>hello world"))), nil
	}

	t.Run("should be able to get photo detail", func(t *testing.T) {
		r, err := DetailPhoto(123456, &session.Session{})
		if string(r) != "photos/123456.png=>hello world" || err != nil {
			t.Errorf("DetailPhoto(...) = (%v, %v), wants: 'photos/123456.png=>hello world', nil", string(r), err)
		}
	})

	s3.GetObjectFunc = func(key string, s *session.Session, o ...oss.Option) (io.ReadCloser, error) {
		return nil, oss.ServiceError{Code: "NoSuchKey"}
	}
	t.Run("should answer not found when the photo is absent", func(t *testing.T) {
		r, err := DetailPhoto(123456, &session.Session{})
		if string(r) != "" || err != bizerror.ErrNotFound {
			t.Errorf("DetailPhoto(...) = (%v, %v), wants: '', %v", r, err, bizerror.ErrNotFound)
		}
	})
}

func TestCreatePhoto(t *testing.T) {
	var store string
	s3.PutObjectFunc = func(key string, r io.Reader, s *session.Session, o ...oss.Option) error {
		b, err := ioutil.ReadAll(r)
		if err != nil {
			return err
		}
		store = key + "=>" + string(b)
		return nil
	}

	t.Run("should store the photo under the session user's key", func(t *testing.T) {
		store = ""
		err := CreatePhoto(bytes.NewReader([]byte("hello world")),
			&session.Session{Identity: session.Identity{ID: 123456}})
		if store != "photos/123456.png=>hello world" || err != nil {
			t.Errorf("CreatePhoto(...) = %v, %s, wants: nil, 'photos/123456.png=>hello world'", err, store)
		}
	})
}
