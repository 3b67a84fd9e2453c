// Package e2e provides end-to-end tests that drive exports through the HTTP API.
package e2e

import (
	"fmt"
	"strconv"

	"github.com/hyperjump/tally/internal/config"
	"github.com/hyperjump/tally/internal/models"
)

// Corpus holds the users seeded for an E2E run and the rows an export of them must produce.
type Corpus struct {
	Users []models.UserInput
	// Flagged holds the IDs whose email equals the reference email.
	Flagged map[int64]bool
}

// BuildCorpus returns n users with explicit ids 1..n. Every seventh user carries the reference
// email; a few names use wide or accented characters so auto-sizing sees multi-byte text.
func BuildCorpus(n int) *Corpus {
	names := []string{"Ada", "Grace", "Linus", "Zoë", "Ken", "Barbara", "渡辺", "Edsger", "Frances", "Niklaus"}
	c := &Corpus{Flagged: make(map[int64]bool)}
	for i := 1; i <= n; i++ {
		id := int64(i)
		email := fmt.Sprintf("user%03d@example.com", i)
		if i%7 == 0 {
			email = config.DefaultReferenceEmail
			c.Flagged[id] = true
		}
		c.Users = append(c.Users, models.UserInput{
			ID:    id,
			Name:  fmt.Sprintf("%s %d", names[(i-1)%len(names)], i),
			Email: email,
		})
	}
	return c
}

// SingleSheetRows returns the text rows of a single-mode export, header first.
func (c *Corpus) SingleSheetRows() [][]string {
	rows := [][]string{{"id", "name", "email", config.DefaultDerivedLabel}}
	for _, u := range c.Users {
		count := "0"
		if c.Flagged[u.ID] {
			count = "1"
		}
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10),
			u.Name + config.DefaultNameSuffix,
			u.Email,
			count,
		})
	}
	return rows
}

// RecordSheetRows returns the text rows of the per-record sheet for u, header first.
func RecordSheetRows(u models.UserInput) [][]string {
	return [][]string{
		{"id", "name", "email"},
		{strconv.FormatInt(u.ID, 10), u.Name, u.Email},
	}
}
