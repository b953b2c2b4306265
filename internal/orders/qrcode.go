package orders

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// HandoffQRGenerator encodes the link a partner or courier scans to confirm
// the meal handoff.
type HandoffQRGenerator struct {
	BaseURL string
}

func (g HandoffQRGenerator) Generate(orderID int) ([]byte, error) {
	data := fmt.Sprintf("%s/handoff?order_id=%d", g.BaseURL, orderID)
	return qrcode.Encode(data, qrcode.Medium, 256)
}
