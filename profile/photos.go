package profile

import (
	"io"
	"io/ioutil"
	"staffhub/bizerror"
	"staffhub/client/s3"
	"staffhub/session"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/fundwit/go-commons/types"
)

var (
	DetailPhotoFunc = DetailPhoto
	CreatePhotoFunc = CreatePhoto
)

func DetailPhoto(id types.ID, s *session.Session) ([]byte, error) {
	r, err := s3.GetObjectFunc("photos/"+id.String()+".png", s)
	if err != nil {
		if serErr, ok := err.(oss.ServiceError); ok && serErr.Code == "NoSuchKey" {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	return ioutil.ReadAll(r)
}

func CreatePhoto(r io.Reader, s *session.Session) error {
	return s3.PutObjectFunc("photos/"+s.Identity.ID.String()+".png", r, s)
}
