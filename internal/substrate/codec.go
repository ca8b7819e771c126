package substrate

import (
	"encoding/json"
	"time"

	"github.com/sonicx222/arbitrage-new-sub015/internal/domain"
)

func encodeDLQEntry(entry domain.DLQEntry) (string, error) {
	entry.Timestamp = time.Now().Unix()

	b, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}

	return string(b), nil
}
