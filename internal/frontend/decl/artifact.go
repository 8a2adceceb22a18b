package decl

import (
	"fmt"
	"sort"
	"strings"

	"asbuild/internal/names"
	"asbuild/internal/source"
	"asbuild/internal/unit"
)

// render produces the unit artifact. It depends only on the unit's own
// content and the resolutions it recorded, never on scheduling order.
func render(u *unit.Unit, qn names.QName, text string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "unit %s\n", qn)
	for _, def := range u.Exports {
		fmt.Fprintf(&b, "def %s\n", def.Describe())
	}
	fmt.Fprintf(&b, "content %s\n", source.Sum([]byte(text)).Short())
	for _, k := range unit.Kinds {
		hist := u.Refs[k].History()
		keys := make([]string, 0, len(hist))
		for key := range hist {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, "ref %s %s -> %s\n", k, key, hist[key].QName)
		}
	}
	bundles := make([]string, 0, len(u.Bundles))
	for key := range u.Bundles {
		bundles = append(bundles, key)
	}
	sort.Strings(bundles)
	for _, key := range bundles {
		fmt.Fprintf(&b, "bundle %s %s\n", key, u.Bundles[key].Short())
	}
	return []byte(b.String())
}

// signatureOf digests the externally visible shape of f.
func signatureOf(f *file) source.Digest {
	return source.Sum([]byte(strings.Join(f.signature, "\n")))
}
