package entity

import (
	"fmt"
	"net/mail"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// FieldErrors maps a payload field (its JSON name) to a user-facing message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns nil when there are no field errors so callers can write
// `if err := x.Validate(); err != nil`.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Single-field checks. The forms reuse these as per-input validators.

func CheckMinLen(v string, n int, msg string) error {
	if utf8.RuneCountInString(strings.TrimSpace(v)) < n {
		return fmt.Errorf("%s", msg)
	}
	return nil
}

func CheckMaxLen(v string, n int, msg string) error {
	if utf8.RuneCountInString(strings.TrimSpace(v)) > n {
		return fmt.Errorf("%s", msg)
	}
	return nil
}

func CheckEmail(v string) error {
	v = strings.TrimSpace(v)
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return fmt.Errorf("Invalid email address")
	}
	return nil
}

func CheckHTTPURL(v string) error {
	v = strings.TrimSpace(v)
	u, err := url.Parse(v)
	if err != nil || u.Host == "" {
		return fmt.Errorf("Please enter a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	return nil
}

func CheckDate(v string) error {
	if _, err := parseOptionalDate("date", v); err != nil {
		return err
	}
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("Date is required")
	}
	return nil
}

func (c UserCreate) Validate() error {
	fe := FieldErrors{}
	if err := CheckMinLen(c.FirstName, 3, "First name is required"); err != nil {
		fe["firstName"] = err.Error()
	}
	if err := CheckMinLen(c.LastName, 3, "Last name is required"); err != nil {
		fe["lastName"] = err.Error()
	}
	if err := CheckEmail(c.Email); err != nil {
		fe["email"] = err.Error()
	}
	if err := CheckMinLen(c.Username, 3, "Username is required"); err != nil {
		fe["username"] = err.Error()
	} else if err := CheckMaxLen(c.Username, 16, "Username must be 16 characters or less"); err != nil {
		fe["username"] = err.Error()
	}
	if !validRole(c.Role) {
		fe["role"] = "Role is required"
	}
	if c.Position != "" && !validPosition(c.Position) {
		fe["position"] = "Position is required"
	}
	return fe.Err()
}

func checkProjectName(name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	if err := CheckMinLen(name, 2, "Name must be at least 2 characters"); err != nil {
		return err
	}
	return CheckMaxLen(name, 100, "Name must be 100 characters or less")
}

func (c ProjectCreate) Validate() error {
	fe := FieldErrors{}
	if err := checkProjectName(c.Name); err != nil {
		fe["name"] = err.Error()
	}
	if err := CheckHTTPURL(c.URL); err != nil {
		fe["url"] = err.Error()
	}
	return fe.Err()
}

func (u ProjectUpdate) Validate() error {
	fe := FieldErrors{}
	if err := checkProjectName(u.Name); err != nil {
		fe["name"] = err.Error()
	}
	if strings.TrimSpace(u.URL) != "" {
		if err := CheckHTTPURL(u.URL); err != nil {
			fe["url"] = err.Error()
		}
	}
	return fe.Err()
}

func (c AgentCreate) Validate() error {
	fe := FieldErrors{}
	if err := CheckMinLen(c.Name, 2, "Name must be at least 2 characters"); err != nil {
		fe["name"] = err.Error()
	}
	if err := CheckMinLen(c.Prompt, 2, "Prompt must be at least 2 characters"); err != nil {
		fe["prompt"] = err.Error()
	}
	return fe.Err()
}

func (u AgentUpdate) Validate() error {
	fe := FieldErrors{}
	if _, err := uuid.Parse(strings.TrimSpace(u.ID)); err != nil {
		fe["id"] = "Invalid agent id"
	}
	if err := CheckMinLen(u.Name, 3, "Name must be at least 3 characters"); err != nil {
		fe["name"] = err.Error()
	}
	if err := CheckMinLen(u.Prompt, 30, "Prompt must be at least 30 characters"); err != nil {
		fe["prompt"] = err.Error()
	}
	return fe.Err()
}

func (c AnalysisCreate) Validate() error {
	fe := FieldErrors{}
	if strings.TrimSpace(c.ProjectID) == "" {
		fe["projectId"] = "Project is required"
	}
	if strings.TrimSpace(c.AgentID) == "" {
		fe["agentId"] = "Agent is required"
	}
	if len(c.UserIDs) == 0 {
		fe["userIds"] = "Select at least one user"
	}
	if err := CheckDate(c.From); err != nil {
		fe["from"] = err.Error()
	}
	if err := CheckDate(c.To); err != nil {
		fe["to"] = err.Error()
	}
	if fe["from"] == "" && fe["to"] == "" && c.From > c.To {
		fe["to"] = "To date must not be before from date"
	}
	return fe.Err()
}
