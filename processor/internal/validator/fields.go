package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Identity references (line refs, journey refs, operator refs) share one
// bounded charset across the schema.
var identityPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,256}$`)

// disallowedText is the character set rejected in free-text display fields.
const disallowedText = "[]{}?$%^=@#;:"

// check validates one raw leaf value. name is the field's own name, used in
// rendered messages. An empty return means the value passed.
type check func(name, value string) string

func identityRef(name, value string) string {
	if !identityPattern.MatchString(value) {
		return fmt.Sprintf("%s must be 1-256 characters and only contain letters, numbers, periods, hyphens, underscores and colons", name)
	}
	return ""
}

func freeText(name, value string) string {
	if strings.ContainsAny(value, disallowedText) {
		return fmt.Sprintf("%s must not contain the following disallowed characters: %s", name, disallowedText)
	}
	return ""
}

func number(_, value string) string {
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return "Expected number, received nan"
	}
	return ""
}

func datetime(_, value string) string {
	if _, ok := parseTime(value); !ok {
		return "Invalid datetime"
	}
	return ""
}

func occupancyEnum(_, value string) string {
	switch value {
	case "full", "seatsAvailable", "standingRoomOnly":
		return ""
	}
	return fmt.Sprintf("Invalid enum value. Expected 'full' | 'seatsAvailable' | 'standingRoomOnly', received '%s'", value)
}

// parseTime accepts RFC3339 timestamps with or without a zone designator;
// producers commonly omit the zone.
func parseTime(value string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// fieldRule is one entry in a per-element validation table.
type fieldRule struct {
	path     []string
	level    Level
	code     Code
	required bool
	check    check
}

// collector accumulates issues for one element, prefixing every reported
// path with the element's document position.
type collector struct {
	prefix []string
	issues []Issue
}

func newCollector(prefix ...string) *collector {
	return &collector{prefix: prefix}
}

func (c *collector) report(i Issue) {
	i.Path = append(append([]string{}, c.prefix...), i.Path...)
	c.issues = append(c.issues, i)
}

// field applies one rule to a raw leaf value; the reducer for the rule
// tables. Returns false when an issue was reported.
func (c *collector) field(value string, r fieldRule) bool {
	if value == "" {
		if r.required {
			c.report(Issue{Code: CodeMissing, Path: r.path, Message: "Required", Level: r.level})
			return false
		}
		return true
	}
	if msg := r.check(r.path[len(r.path)-1], value); msg != "" {
		c.report(Issue{Code: r.code, Path: r.path, Message: msg, Level: r.level})
		return false
	}
	return true
}

// critical reports whether any collected issue excludes the element.
func (c *collector) critical() bool {
	for _, i := range c.issues {
		if i.Level == LevelCritical {
			return true
		}
	}
	return false
}
