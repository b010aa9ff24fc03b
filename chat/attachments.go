package chat

import (
	"io"
	"mime/multipart"
	"staffhub/bizerror"
	"staffhub/client/s3"
	"staffhub/session"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
)

var (
	CreateAttachmentFunc = CreateAttachment
	DetailAttachmentFunc = DetailAttachment
)

// CreateAttachment stores the uploaded blob and returns the descriptor
// a later send request will carry.
func CreateAttachment(fh *multipart.FileHeader, r io.Reader, s *session.Session) (*Attachment, error) {
	key := uuid.New().String()
	if err := s3.PutObjectFunc("attachments/"+key, r, s); err != nil {
		return nil, err
	}

	return &Attachment{
		Name: fh.Filename,
		Size: fh.Size,
		Mime: fh.Header.Get("Content-Type"),
		URL:  PathChatAttachments + "/" + key,
	}, nil
}

func DetailAttachment(key string, s *session.Session) (io.ReadCloser, error) {
	r, err := s3.GetObjectFunc("attachments/"+key, s)
	if err != nil {
		if serErr, ok := err.(oss.ServiceError); ok && serErr.Code == "NoSuchKey" {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	return r, nil
}
