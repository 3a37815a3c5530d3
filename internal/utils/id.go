package utils

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const bookingIDPrefix = "MFS"

// NewBookingID returns MFS-<unix millis>-<5 random base36 chars>, uppercased.
// The suffix is the low five digits, which are uniform over 36^5.
func NewBookingID(now time.Time) string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[:8])
	suffix := strconv.FormatUint(n, 36)
	for len(suffix) < 5 {
		suffix = "0" + suffix
	}
	return strings.ToUpper(fmt.Sprintf("%s-%d-%s", bookingIDPrefix, now.UnixMilli(), suffix[len(suffix)-5:]))
}

// NewUploadName returns a collision-free file name keeping the original extension.
func NewUploadName(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return uuid.NewString() + ext
}
