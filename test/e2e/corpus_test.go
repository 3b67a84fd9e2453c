package e2e

import (
	"testing"

	"github.com/hyperjump/tally/internal/config"
)

func TestBuildCorpus(t *testing.T) {
	c := BuildCorpus(30)
	if len(c.Users) != 30 {
		t.Fatalf("expected 30 users, got %d", len(c.Users))
	}
	if len(c.Flagged) != 4 {
		t.Errorf("expected 4 flagged users (7, 14, 21, 28), got %d", len(c.Flagged))
	}
	seen := make(map[int64]bool)
	for _, u := range c.Users {
		if seen[u.ID] {
			t.Errorf("duplicate id %d", u.ID)
		}
		seen[u.ID] = true
		if (u.Email == config.DefaultReferenceEmail) != c.Flagged[u.ID] {
			t.Errorf("user %d: flag does not match email %q", u.ID, u.Email)
		}
	}

	rows := c.SingleSheetRows()
	if len(rows) != 31 {
		t.Fatalf("expected header + 30 rows, got %d", len(rows))
	}
	if rows[7][3] != "1" || rows[6][3] != "0" {
		t.Errorf("flag column: row 7 = %q, row 6 = %q", rows[7][3], rows[6][3])
	}
}
