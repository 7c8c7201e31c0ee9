package core

import (
	"errors"
	"testing"
)

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *ConceptRecord
		wantErr error
	}{
		{
			name:    "valid record",
			record:  &ConceptRecord{CURIE: "MONDO:1", Names: []string{"flu"}, PreferredName: "Influenza"},
			wantErr: nil,
		},
		{
			name:    "empty names list is allowed",
			record:  &ConceptRecord{CURIE: "MONDO:1", Names: []string{}, PreferredName: "Influenza"},
			wantErr: nil,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: ErrInvalidRecord,
		},
		{
			name:    "missing curie",
			record:  &ConceptRecord{Names: []string{"flu"}, PreferredName: "Influenza"},
			wantErr: ErrMissingCURIE,
		},
		{
			name:    "blank curie",
			record:  &ConceptRecord{CURIE: "  ", Names: []string{"flu"}, PreferredName: "Influenza"},
			wantErr: ErrMissingCURIE,
		},
		{
			name:    "missing names",
			record:  &ConceptRecord{CURIE: "MONDO:1", PreferredName: "Influenza"},
			wantErr: ErrMissingNames,
		},
		{
			name:    "missing preferred name",
			record:  &ConceptRecord{CURIE: "MONDO:1", Names: []string{"flu"}},
			wantErr: ErrMissingPreferredName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRecord() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRecord() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("ValidateRecord() error = %v, should wrap ErrInvalidRecord", err)
			}
		})
	}
}

func TestCheckDimensions(t *testing.T) {
	if err := CheckDimensions(make([]float32, 384), 384); err != nil {
		t.Errorf("CheckDimensions() error = %v, want nil", err)
	}
	if err := CheckDimensions(make([]float32, 768), 384); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("CheckDimensions() error = %v, want ErrDimensionMismatch", err)
	}
}
