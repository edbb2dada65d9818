package http

import (
	"fmt"
	"os/user"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// fail writes the JSON error envelope and aborts the request.
func fail(c *gin.Context, status int, format string, args ...any) {
	c.AbortWithStatusJSON(status, gin.H{"error": fmt.Sprintf(format, args...)})
}

// currentUsername identifies the requesting user. Deployments behind an
// authenticating proxy set X-Remote-User; standalone runs fall back to
// the process owner.
func currentUsername(c *gin.Context) string {
	if name := c.GetHeader("X-Remote-User"); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "anonymous"
}

// byteRange is one request range resolved against a file size.
type byteRange struct {
	Start int64
	End   int64 // inclusive
}

func (r byteRange) Length() int64 { return r.End - r.Start + 1 }

// parseRangeHeader resolves a Range header against size. Only the first
// range of a multi-range header is honored. A nil result with a nil
// error means no range was requested.
func parseRangeHeader(header string, size int64) (*byteRange, error) {
	if header == "" {
		return nil, nil
	}
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return nil, fmt.Errorf("unsupported range unit")
	}
	first := strings.TrimSpace(strings.Split(spec, ",")[0])
	startStr, endStr, ok := strings.Cut(first, "-")
	if !ok {
		return nil, fmt.Errorf("malformed range")
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		// Suffix range: last N bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("malformed suffix range")
		}
		if n > size {
			n = size
		}
		if n == 0 {
			return nil, fmt.Errorf("empty suffix range")
		}
		return &byteRange{Start: size - n, End: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, fmt.Errorf("malformed range start")
	}
	if start >= size {
		return nil, fmt.Errorf("range start beyond end of file")
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return nil, fmt.Errorf("malformed range end")
		}
		if end >= size {
			end = size - 1
		}
	}
	return &byteRange{Start: start, End: end}, nil
}

// contentTypeFor picks a Content-Type from the file name and a content
// sample. YAML is forced to text so browsers render it inline.
func contentTypeFor(name string, sample []byte) string {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return "text/plain; charset=utf-8"
	}
	if strings.HasSuffix(lower, ".json") {
		return "application/json"
	}
	if mt := mimetype.Detect(sample); mt != nil {
		return mt.String()
	}
	return "application/octet-stream"
}
