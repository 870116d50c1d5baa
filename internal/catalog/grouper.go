package catalog

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/wordace/pkg/models"
)

// DefaultPriorityKeywords flag lists for prominent display when any of them
// appears in the title.
var DefaultPriorityKeywords = []string{"システム英単語", "ターゲット", "DUO", "鉄壁", "速読英単語"}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	nonSlugRe    = regexp.MustCompile(`[^a-z0-9_]`)
)

// Group is the import unit for one list: its metadata draft and entry drafts
type Group struct {
	List         models.CatalogList
	Entries      []models.CatalogEntry
	DuplicateIDs int
}

// ListID derives the stable list identifier from a title.
func ListID(title string) string {
	id := strings.ToLower(title)
	id = whitespaceRe.ReplaceAllString(id, "_")
	id = nonSlugRe.ReplaceAllString(id, "")
	if id == "" {
		sum := sha1.Sum([]byte(title))
		id = "list_" + hex.EncodeToString(sum[:])[:12]
	}
	return id
}

// EntryID derives the entry identifier from its list and position.
func EntryID(listID string, sequenceNumber int) string {
	return listID + "_" + strconv.Itoa(sequenceNumber)
}

// IsPriority reports whether any keyword is a substring of title.
func IsPriority(title string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(title, k) {
			return true
		}
	}
	return false
}

// GroupRows groups rows by list title in first-appearance order.
// It returns *EmptyInputError when rows is empty.
func GroupRows(rows []Row, keywords []string) ([]Group, error) {
	if len(rows) == 0 {
		return nil, &EmptyInputError{}
	}

	index := make(map[string]int)
	var groups []Group
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		gi, ok := index[row.ListTitle]
		if !ok {
			gi = len(groups)
			index[row.ListTitle] = gi
			groups = append(groups, Group{
				List: models.CatalogList{
					ID:         ListID(row.ListTitle),
					Title:      row.ListTitle,
					IsPriority: IsPriority(row.ListTitle, keywords),
				},
			})
		}

		g := &groups[gi]
		entry := models.CatalogEntry{
			ID:             EntryID(g.List.ID, row.SequenceNumber),
			ListID:         g.List.ID,
			SequenceNumber: row.SequenceNumber,
			Term:           row.Term,
			Definition:     row.Definition,
			SearchKey:      strings.ToLower(row.Term),
		}
		if _, dup := seen[entry.ID]; dup {
			g.DuplicateIDs++
		}
		seen[entry.ID] = struct{}{}
		g.Entries = append(g.Entries, entry)
	}

	for i := range groups {
		groups[i].List.EntryCount = len(groups[i].Entries)
	}
	return groups, nil
}

// Build parses text and groups the result. Malformed rows are returned
// alongside the groups; an input without usable rows yields *EmptyInputError.
func Build(text string, keywords []string) ([]Group, ParseResult, error) {
	parsed := Parse(text)
	groups, err := GroupRows(parsed.Rows, keywords)
	if err != nil {
		return nil, parsed, &EmptyInputError{Lines: parsed.Lines, Skipped: len(parsed.Skipped)}
	}
	return groups, parsed, nil
}
