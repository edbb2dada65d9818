package ozx

import "github.com/bytedance/sonic"

// Metadata is the RFC-9 OME metadata carried in the archive comment.
type Metadata struct {
	Version    string
	JSONFirst  bool
	RawComment string
}

type commentDoc struct {
	OME *struct {
		Version any `json:"version"`
		ZipFile struct {
			CentralDirectory struct {
				JSONFirst bool `json:"jsonFirst"`
			} `json:"centralDirectory"`
		} `json:"zipFile"`
	} `json:"ome"`
}

// parseComment decodes the RFC-9 comment structure:
//
//	{"ome": {"version": "0.5", "zipFile": {"centralDirectory": {"jsonFirst": true}}}}
//
// A comment that is not OME metadata yields nil.
func parseComment(comment string) *Metadata {
	if comment == "" {
		return nil
	}
	var doc commentDoc
	if err := sonic.UnmarshalString(comment, &doc); err != nil {
		return nil
	}
	if doc.OME == nil || doc.OME.Version == nil {
		return nil
	}
	return &Metadata{
		Version:    versionString(doc.OME.Version),
		JSONFirst:  doc.OME.ZipFile.CentralDirectory.JSONFirst,
		RawComment: comment,
	}
}

func versionString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		data, err := sonic.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return ""
	}
}
