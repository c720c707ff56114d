package models

import (
	"sort"
	"time"
)

// Account is one discoverable financial filing for a charity. Values are
// immutable once constructed; Size is 0 when the source doesn't expose it.
type Account struct {
	Regno string    `json:"regno"`
	Fyend time.Time `json:"fyend"`
	URL   string    `json:"url"`
	Size  int64     `json:"size,omitempty"`
}

// MergeAccount returns a new Account built from base with any non-zero
// field of the overrides applied on top. Later overrides win.
func MergeAccount(base Account, overrides ...Account) Account {
	out := base
	for _, o := range overrides {
		if o.Regno != "" {
			out.Regno = o.Regno
		}
		if !o.Fyend.IsZero() {
			out.Fyend = o.Fyend
		}
		if o.URL != "" {
			out.URL = o.URL
		}
		if o.Size != 0 {
			out.Size = o.Size
		}
	}
	return out
}

// SortAccounts orders accounts by financial year end, most recent first.
func SortAccounts(accounts []Account) {
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Fyend.After(accounts[j].Fyend)
	})
}
