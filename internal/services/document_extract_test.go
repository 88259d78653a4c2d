package services

import "testing"

func TestClassifyLegalDocument(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"fir full form", "FIRST INFORMATION REPORT under section 154 CrPC", "fir"},
		{"fir abbreviated", "Copy of F.I.R. No. 112/2024, PS Hauz Khas", "fir"},
		{"affidavit", "AFFIDAVIT of the deponent, solemnly affirmed at Delhi", "affidavit"},
		{"writ petition", "WRIT PETITION (CIVIL) No. 443 of 2024", "petition"},
		{"legal notice", "LEGAL NOTICE under section 106 of the Transfer of Property Act", "notice"},
		{"rent agreement", "RENT AGREEMENT executed between the lessor and lessee", "agreement"},
		{"judgment", "JUDGMENT delivered by the Hon'ble Court", "judgment"},
		{"unclassifiable", "handwritten notes about the meeting", "other"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyLegalDocument(tc.text); got != tc.want {
				t.Fatalf("classifyLegalDocument(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}
