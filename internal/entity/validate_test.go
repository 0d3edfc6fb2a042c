package entity

import (
	"errors"
	"testing"
)

func TestProjectCreate_Validate(t *testing.T) {
	if err := (ProjectCreate{URL: "https://example.com"}).Validate(); err != nil {
		t.Fatalf("expected minimal project to be valid, got %v", err)
	}

	err := (ProjectCreate{Name: "x", URL: "ftp://example.com"}).Validate()
	var fe FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %T (%v)", err, err)
	}
	if fe["name"] != "Name must be at least 2 characters" {
		t.Fatalf("unexpected name error: %q", fe["name"])
	}
	if fe["url"] != "URL must start with http:// or https://" {
		t.Fatalf("unexpected url error: %q", fe["url"])
	}
}

func TestUserCreate_Validate(t *testing.T) {
	ok := UserCreate{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Username: "ada", Role: RoleAdmin}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid user, got %v", err)
	}

	bad := UserCreate{FirstName: "Al", Email: "nope", Username: "this-username-is-too-long", Position: "astronaut"}
	var fe FieldErrors
	if !errors.As(bad.Validate(), &fe) {
		t.Fatalf("expected FieldErrors")
	}
	for _, k := range []string{"firstName", "lastName", "email", "username", "role", "position"} {
		if fe[k] == "" {
			t.Fatalf("expected error for %s, got %v", k, fe)
		}
	}
}

func TestAgentUpdate_RequiresUUIDAndLongPrompt(t *testing.T) {
	u := AgentUpdate{ID: "not-a-uuid", Name: "Reviewer", Prompt: "short"}
	var fe FieldErrors
	if !errors.As(u.Validate(), &fe) {
		t.Fatalf("expected FieldErrors")
	}
	if fe["id"] == "" || fe["prompt"] == "" {
		t.Fatalf("expected id and prompt errors, got %v", fe)
	}
	if fe["name"] != "" {
		t.Fatalf("did not expect name error, got %q", fe["name"])
	}

	u = AgentUpdate{
		ID:     "6f1c2f5e-8f43-4c1e-9d8e-0a2b3c4d5e6f",
		Name:   "Reviewer",
		Prompt: "Review every commit for risky changes and summarise.",
	}
	if err := u.Validate(); err != nil {
		t.Fatalf("expected valid update, got %v", err)
	}
}

func TestAnalysisCreate_Validate(t *testing.T) {
	c := AnalysisCreate{ProjectID: "p1", AgentID: "a1", UserIDs: []string{"u1"}, From: "2025-02-01", To: "2025-01-01"}
	var fe FieldErrors
	if !errors.As(c.Validate(), &fe) {
		t.Fatalf("expected FieldErrors")
	}
	if fe["to"] == "" {
		t.Fatalf("expected to-date ordering error, got %v", fe)
	}

	c.To = "2025-03-01"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid analysis, got %v", err)
	}
}

func TestListRequest_MergesFilterFields(t *testing.T) {
	body, err := ListRequest(Query{
		Page:    2,
		Limit:   20,
		Search:  " ada ",
		Sorting: []SortSpec{{ColumnID: "createdAt", Direction: SortDesc}},
	}, UserFilter{Role: RoleManager})
	if err != nil {
		t.Fatalf("ListRequest: %v", err)
	}
	if body["page"] != 2 || body["limit"] != 20 {
		t.Fatalf("unexpected paging: %v", body)
	}
	if body["search"] != "ada" {
		t.Fatalf("expected trimmed search, got %v", body["search"])
	}
	if body["sort_by"] != "createdAt" || body["sort_order"] != "desc" {
		t.Fatalf("unexpected sort: %v", body)
	}
	if body["role"] != "manager" {
		t.Fatalf("expected role filter, got %v", body)
	}
	if _, ok := body["position"]; ok {
		t.Fatalf("empty position must not be sent")
	}
}

func TestListRequest_RejectsInvalidFilter(t *testing.T) {
	_, err := ListRequest(Query{Page: 1, Limit: 10}, AgentFilter{FromDate: "2025-05-01", ToDate: "2025-04-01"})
	if err == nil {
		t.Fatalf("expected error for inverted date range")
	}
	if _, err := ListRequest(Query{Page: 0, Limit: 10}, nil); err == nil {
		t.Fatalf("expected error for page 0")
	}
}
