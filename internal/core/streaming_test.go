package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"file with BOM", append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...), "hello,world"},
		{"file without BOM", []byte("hello,world"), "hello,world"},
		{"empty file", []byte{}, ""},
		{"only BOM", []byte{0xEF, 0xBB, 0xBF}, ""},
		{"partial BOM at start", []byte{0xEF, 0xBB, 'a', 'b', 'c'}, string([]byte{0xEF, 0xBB, 'a', 'b', 'c'})},
		{"short input", []byte("a"), "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(NewBOMSkippingReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestReadUpload(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		got, err := ReadUpload(strings.NewReader("\xEF\xBB\xBFa,b\n1,2\n"), 100)
		if err != nil {
			t.Fatalf("ReadUpload error = %v", err)
		}
		if string(got) != "a,b\n1,2\n" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("exactly at limit", func(t *testing.T) {
		if _, err := ReadUpload(strings.NewReader("abcd"), 4); err != nil {
			t.Errorf("ReadUpload error = %v, want nil", err)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		_, err := ReadUpload(strings.NewReader("abcde"), 4)
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("err = %v, want ErrFileTooLarge", err)
		}
		if MapError(err).Code != "FILE001" {
			t.Errorf("code = %s, want FILE001", MapError(err).Code)
		}
	})

	t.Run("blank", func(t *testing.T) {
		if _, err := ReadUpload(strings.NewReader(" \n "), 0); !errors.Is(err, ErrEmptyFile) {
			t.Errorf("err = %v, want ErrEmptyFile", err)
		}
	})
}

func TestCheckCSVName(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr bool
	}{
		{"lowercase", "leads.csv", false},
		{"uppercase", "LEADS.CSV", false},
		{"mixed case", "March Leads.Csv", false},
		{"spreadsheet", "leads.xlsx", true},
		{"archive", "leads.zip", true},
		{"csv in the middle", "leads.csv.zip", true},
		{"no extension", "leads", true},
		{"dot only", "csv", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCSVName(tt.file)
			if got := errors.Is(err, ErrNotCSV); got != tt.wantErr {
				t.Errorf("CheckCSVName(%q) error = %v, wantErr %v", tt.file, err, tt.wantErr)
			}
		})
	}
}

func TestImportLeads_RejectsNonCSVName(t *testing.T) {
	svc := NewService(nil, Options{})

	_, err := svc.ImportLeads(context.Background(), ImportRequest{
		Data:     []byte("PK\x03\x04binary"),
		FileName: "leads.zip",
		Source:   SourceCSV,
	})
	if !errors.Is(err, ErrNotCSV) {
		t.Fatalf("ImportLeads() error = %v, want ErrNotCSV", err)
	}
}
