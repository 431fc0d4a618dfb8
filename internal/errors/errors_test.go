package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		wantMsg    string
		wantCat    Category
		wantStatus int
	}{
		{
			name:       "navigation error",
			code:       CodeProductNotFound,
			wantMsg:    "Product not found",
			wantCat:    CategoryNavigation,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "state error",
			code:       CodeInvalidTheme,
			wantMsg:    "Invalid theme",
			wantCat:    CategoryState,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "config error without status",
			code:       CodeConfigInvalid,
			wantMsg:    "Invalid configuration file",
			wantCat:    CategoryConfig,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "unknown error code",
			code:       "SF999",
			wantMsg:    "Unknown error",
			wantCat:    "",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
			if got := err.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryValidation, "page %q is not a number", "abc")
	if err.Message != `page "abc" is not a number` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryValidation {
		t.Errorf("Category = %q, want %q", err.Category, CategoryValidation)
	}
	if err.Error() != err.Message {
		t.Errorf("Error() without code = %q, want %q", err.Error(), err.Message)
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"code only", New(CodeInvalidTheme), "SF021: Invalid theme"},
		{"with field", New(CodeConfigValue).WithField("shop.pageSize"), "SF101: Invalid configuration value (shop.pageSize)"},
		{"with cause", New(CodeStorageUnavailable).Wrap(fmt.Errorf("dial tcp: refused")), "SF040: Storage backend unavailable: dial tcp: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Builders(t *testing.T) {
	err := New(CodeInvalidRequest).
		WithField("quantity").
		WithDetail("quantity must be a number").
		WithSuggestion("send an integer")

	if err.Field != "quantity" || err.Detail != "quantity must be a number" || err.Suggestion != "send an integer" {
		t.Errorf("builders not applied: %+v", err)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("no such key")
	err := New(CodeStorageUnavailable).Wrap(cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	wrapped := fmt.Errorf("loading cart: %w", err)
	var se *Error
	if !stderrors.As(wrapped, &se) || se.Code != CodeStorageUnavailable {
		t.Errorf("errors.As: got %v", se)
	}
	if Code(wrapped) != CodeStorageUnavailable {
		t.Errorf("Code() = %q, want %q", Code(wrapped), CodeStorageUnavailable)
	}
	if Code(cause) != "" {
		t.Errorf("Code() of a plain error = %q, want empty", Code(cause))
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, CodeInvalidRequest) != nil {
		t.Error("FromError(nil) should be nil")
	}

	plain := stderrors.New("boom")
	got := FromError(plain, CodeStorageUnavailable)
	if got.Code != CodeStorageUnavailable || got.Wrapped != plain {
		t.Errorf("FromError(plain) = %+v", got)
	}

	coded := New(CodeInvalidTheme)
	if FromError(fmt.Errorf("ctx: %w", coded), CodeStorageUnavailable) != coded {
		t.Error("FromError should return an existing coded error unchanged")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New(CodeConfigValue).
		WithField("store.driver").
		WithDetail("The driver must name a supported backend.").
		WithSuggestion("Use memory").
		Wrap(stderrors.New(`got "mongo"`))

	out := err.Format()
	for _, want := range []string{
		"ERROR SF101: Invalid configuration value",
		"store.driver",
		"The driver must name a supported backend.",
		`Cause: got "mongo"`,
		"Hint: Use memory",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New(CodeInvalidTheme).WithField("theme")
	if got, want := err.FormatCompact(), "theme: SF021: Invalid theme"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New(CodeProductNotFound).WithField("id").Wrap(stderrors.New("internal detail"))

	var got map[string]string
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &got); jerr != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v", jerr)
	}
	if got["code"] != CodeProductNotFound || got["category"] != string(CategoryNavigation) || got["field"] != "id" {
		t.Errorf("FormatJSON() = %v", got)
	}
	if strings.Contains(err.FormatJSON(), "internal detail") {
		t.Error("FormatJSON should not expose the wrapped cause")
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, fmt.Errorf("serve: %w", New(CodeServerStartupFailed)))
	if !strings.Contains(buf.String(), "ERROR SF142: Server failed to start") {
		t.Errorf("Fprint(coded) = %q", buf.String())
	}

	buf.Reset()
	Fprint(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("Fprint(plain) = %q", buf.String())
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) != len(registry) {
		t.Fatalf("GetAllCodes() returned %d codes, want %d", len(codes), len(registry))
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Errorf("codes not sorted: %q before %q", codes[i-1], codes[i])
		}
	}
	for _, code := range codes {
		if !strings.HasPrefix(code, "SF") {
			t.Errorf("code %q should start with SF", code)
		}
	}
}

func TestGetTemplate(t *testing.T) {
	tmpl, ok := GetTemplate(CodeUnknownStoreDriver)
	if !ok {
		t.Fatal("expected template for SF102")
	}
	if tmpl.Category != CategoryConfig {
		t.Errorf("Category = %q, want config", tmpl.Category)
	}
	if _, ok := GetTemplate("SF999"); ok {
		t.Error("expected no template for SF999")
	}
}

func TestRegister(t *testing.T) {
	Register("SF900", ErrorTemplate{Category: CategoryCLI, Message: "Custom", Status: http.StatusTeapot})
	defer delete(registry, "SF900")

	err := New("SF900")
	if err.Message != "Custom" || err.HTTPStatus() != http.StatusTeapot {
		t.Errorf("New(SF900) = %+v", err)
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  int
	}{
		{"", 10, 0},
		{"short", 10, 1},
		{"one two three four five", 9, 3},
	}
	for _, tt := range tests {
		if got := wrapText(tt.text, tt.width); len(got) != tt.want {
			t.Errorf("wrapText(%q, %d) = %q, want %d lines", tt.text, tt.width, got, tt.want)
		}
	}
}
