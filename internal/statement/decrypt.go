package statement

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Decrypt removes password protection from a statement PDF and returns
// the equivalent unprotected bytes. The whole transformation happens in
// memory so the caller can feed bytes from GCS, a local file or an
// email attachment alike.
func Decrypt(pdfBytes []byte, password string) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password

	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(pdfBytes), &out, conf); err != nil {
		return nil, &DecryptionError{Err: err}
	}

	return out.Bytes(), nil
}
