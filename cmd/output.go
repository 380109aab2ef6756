package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/illarion/tdvault/internal/core"
	"github.com/illarion/tdvault/internal/session"
)

// credentialView is the serialized form of one account. The same shape
// is accepted by build --input.
type credentialView struct {
	Index   uint32 `json:"index" yaml:"index"`
	DC      int    `json:"dc,omitempty" yaml:"dc,omitempty"`
	KeyID   string `json:"key_id,omitempty" yaml:"key_id,omitempty"`
	AuthKey string `json:"auth_key,omitempty" yaml:"auth_key,omitempty"`
	Session string `json:"session,omitempty" yaml:"session,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

type containerView struct {
	Dir          string           `json:"dir" yaml:"dir"`
	KeyFile      string           `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	AccountCount int              `json:"account_count" yaml:"account_count"`
	ActiveIndex  *uint32          `json:"active_index,omitempty" yaml:"active_index,omitempty"`
	HasPasscode  bool             `json:"has_passcode" yaml:"has_passcode"`
	Accounts     []credentialView `json:"accounts,omitempty" yaml:"accounts,omitempty"`
	Error        string           `json:"error,omitempty" yaml:"error,omitempty"`
}

type viewOptions struct {
	showKeys bool
	encoder  core.SessionEncoder
}

func newContainerView(dir string, info *core.Info, err error, opts viewOptions) (containerView, error) {
	v := containerView{Dir: dir}
	if err != nil {
		v.Error = err.Error()
		return v, nil
	}

	v.Dir = info.Dir
	v.KeyFile = info.KeyFile
	v.AccountCount = info.AccountCount
	v.HasPasscode = info.HasPasscode
	if info.HasActiveIndex {
		active := info.ActiveIndex
		v.ActiveIndex = &active
	}

	for _, s := range info.Slots {
		cv := credentialView{Index: s.Index}
		if s.Credential == nil {
			cv.Error = s.Err.Error()
			v.Accounts = append(v.Accounts, cv)
			continue
		}
		cv.DC = s.Credential.DC
		cv.KeyID = session.KeyID(s.Credential.AuthKey)
		if opts.showKeys {
			cv.AuthKey = hex.EncodeToString(s.Credential.AuthKey[:])
		}
		if opts.encoder != nil {
			one := &core.Info{Slots: []core.Slot{s}}
			sessions, err := one.Sessions(opts.encoder)
			if err != nil {
				return v, err
			}
			cv.Session = sessions[0]
		}
		v.Accounts = append(v.Accounts, cv)
	}
	return v, nil
}

func writeViews(w io.Writer, format string, views []containerView) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(views) == 1 {
			return enc.Encode(views[0])
		}
		return enc.Encode(views)
	case "yaml":
		var data []byte
		var err error
		if len(views) == 1 {
			data, err = yaml.Marshal(views[0])
		} else {
			data, err = yaml.Marshal(views)
		}
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		for i, v := range views {
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeText(w, v)
		}
		return nil
	}
}

func writeText(w io.Writer, v containerView) {
	fmt.Fprintf(w, "%s\n", v.Dir)
	if v.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", v.Error)
		return
	}

	active := "-"
	if v.ActiveIndex != nil {
		active = fmt.Sprint(*v.ActiveIndex)
	}
	fmt.Fprintf(w, "  key file: %s  accounts: %d  active: %s  passcode: %t\n", v.KeyFile, v.AccountCount, active, v.HasPasscode)

	for _, a := range v.Accounts {
		if a.Error != "" {
			fmt.Fprintf(w, "  [%d] error: %s\n", a.Index, a.Error)
			continue
		}
		line := fmt.Sprintf("  [%d] dc=%d key_id=%s", a.Index, a.DC, a.KeyID)
		if a.AuthKey != "" {
			line += " auth_key=" + a.AuthKey
		}
		fmt.Fprintln(w, line)
		if a.Session != "" {
			fmt.Fprintf(w, "      %s\n", a.Session)
		}
	}
}

// parseCredentialInput reads credentials from a YAML or JSON document:
// either a list of {dc, auth_key} or an extract result with accounts
func parseCredentialInput(data []byte) ([]core.Credential, error) {
	var list []credentialView
	if err := yaml.Unmarshal(data, &list); err != nil {
		var container containerView
		if err2 := yaml.Unmarshal(data, &container); err2 != nil {
			return nil, fmt.Errorf("failed to parse credentials: %w", err)
		}
		list = container.Accounts
	}

	creds := make([]core.Credential, 0, len(list))
	for i, v := range list {
		if v.Error != "" {
			continue
		}
		key, err := hex.DecodeString(strings.TrimSpace(v.AuthKey))
		if err != nil {
			return nil, fmt.Errorf("entry %d: auth_key: %w", i, err)
		}
		if len(key) != core.AuthKeySize {
			return nil, fmt.Errorf("entry %d: auth_key has %d bytes, want %d", i, len(key), core.AuthKeySize)
		}
		c := core.Credential{DC: v.DC}
		copy(c.AuthKey[:], key)
		creds = append(creds, c)
	}
	return creds, nil
}
