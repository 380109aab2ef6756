package core

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/tdvault/internal/session"
)

// Summary renders the extraction result as stable text lines, one per
// slot. Auth keys appear only as their key id.
func Summary(info *Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, "accounts: %d\n", info.AccountCount)
	if info.HasActiveIndex {
		fmt.Fprintf(&b, "active: %d\n", info.ActiveIndex)
	}
	fmt.Fprintf(&b, "passcode: %t\n", info.HasPasscode)
	for _, s := range info.Slots {
		if s.Credential == nil {
			fmt.Fprintf(&b, "slot %d: error: %v\n", s.Index, s.Err)
			continue
		}
		fmt.Fprintf(&b, "slot %d: dc=%d key=%s\n", s.Index, s.Credential.DC, session.KeyID(s.Credential.AuthKey))
	}
	return b.String()
}

// Diff compares two extracted containers and returns a unified-style
// patch of their summaries, or an empty string when they match
func Diff(a, b *Info) string {
	left, right := Summary(a), Summary(b)
	if left == right {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for readable output
	ca, cb, lineArray := dmp.DiffLinesToChars(left, right)
	diffs := dmp.DiffMain(ca, cb, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(left, diffs)
	if len(patches) == 0 {
		return ""
	}

	var result strings.Builder
	fmt.Fprintf(&result, "--- %s\n", a.Dir)
	fmt.Fprintf(&result, "+++ %s\n", b.Dir)
	result.WriteString(dmp.PatchToText(patches))
	return result.String()
}

// DiffLines returns the changed lines of Diff with +/- prefixes, without
// patch headers
func DiffLines(a, b *Info) []string {
	dmp := diffmatchpatch.New()
	ca, cb, lineArray := dmp.DiffLinesToChars(Summary(a), Summary(b))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lineArray)

	var out []string
	for _, d := range diffs {
		prefix := ""
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			out = append(out, prefix+line)
		}
	}
	return out
}
