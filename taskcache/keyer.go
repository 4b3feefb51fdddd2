package taskcache

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/jonwraymond/pipecache/artifact"
)

// DefaultKey returns the default fingerprint function: the version tag
// concatenated with the base64 text of every input's contents, in batch
// order, digested with MD5 and rendered as hex. MD5 is a content
// fingerprint here, not a security boundary; 128 bits keeps keys short
// while making accidental collisions vanishingly unlikely.
func DefaultKey(version string) KeyFunc {
	return func(_ context.Context, inputs []*artifact.Artifact) (string, error) {
		h := md5.New()
		io.WriteString(h, version)
		for _, in := range inputs {
			if in.IsStream() {
				return "", ErrStreamedContent
			}
			io.WriteString(h, base64.StdEncoding.EncodeToString(in.Contents))
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}
}

// KeyFromProps returns a fingerprint function that hashes the named
// properties of each input instead of its contents. Useful when a task's
// output depends on metadata rather than the content blob.
func KeyFromProps(version string, props ...string) KeyFunc {
	return func(_ context.Context, inputs []*artifact.Artifact) (string, error) {
		h := md5.New()
		io.WriteString(h, version)
		for _, in := range inputs {
			for _, p := range props {
				v, ok := in.Prop(p)
				if !ok {
					continue
				}
				switch t := v.(type) {
				case string:
					io.WriteString(h, t)
				case []byte:
					h.Write(t)
				default:
					fmt.Fprintf(h, "%v", t)
				}
			}
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}
}
