package badge

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/skip2/go-qrcode"

	"ms-backoffice/internal/models"
)

// Generator renders employee badge QR codes. The payload is AES-encrypted so
// a scanned badge cannot be forged by re-encoding the plain employee id.
type Generator struct {
	secret []byte
}

func NewGenerator(secret string) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &Generator{secret: hashed[:]}
}

type payload struct {
	EmployeeID int64  `json:"employee_id"`
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}

// GenerateBadgeQR returns a 256px PNG with the encrypted employee payload.
func (g *Generator) GenerateBadgeQR(employee *models.Employee) ([]byte, error) {
	p := payload{
		EmployeeID: employee.ID,
		Name:       employee.Name,
		Surname:    employee.Surname,
	}
	if employee.Department != nil {
		p.Department = employee.Department.Name
	}
	if employee.Position != nil {
		p.Position = employee.Position.Name
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, g.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
