package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// EncodeToken creates a base64 encoded cursor from the account sequence and id
// of the last row returned. Statement pages resume strictly after it.
func EncodeToken(seq int64, id string) string {
	tokenStr := fmt.Sprintf("%d|%s", seq, id)
	return base64.URLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses the base64 encoded cursor back into sequence and id.
func DecodeToken(token string) (int64, string, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return 0, "", fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", fmt.Errorf("invalid pagination token format (split)")
	}

	seq, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || seq < 0 {
		return 0, "", fmt.Errorf("invalid pagination token format (sequence parse): %q", parts[0])
	}
	return seq, parts[1], nil
}

// After reports whether the row (seq, id) sorts strictly after the cursor.
func After(seq int64, id string, cursorSeq int64, cursorID string) bool {
	if seq != cursorSeq {
		return seq > cursorSeq
	}
	return id > cursorID
}
