package classificaservice

import (
	"fmt"
	"net/url"
	"path"
)

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported url scheme %q", ErrInvalidSource, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host", ErrInvalidSource)
	}
	return nil
}

// urlFileName returns the last path element of the final URL, so an
// export link ending in .csv or .xlsx picks the matching tokenizer.
func urlFileName(finalURL, requested string) string {
	for _, raw := range []string{finalURL, requested} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err == nil && u.Path != "" && u.Path != "/" {
			return path.Base(u.Path)
		}
	}
	return ""
}
