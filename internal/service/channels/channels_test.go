package channels

import (
	"testing"
)

func TestParseChatRef(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in       string
		wantID   int64
		wantName string
		wantErr  bool
	}{
		{"@wormz_channel", 0, "@wormz_channel", false},
		{"https://t.me/wormz_channel", 0, "@wormz_channel", false},
		{"http://t.me/wormz_channel", 0, "@wormz_channel", false},
		{"t.me/wormz_channel", 0, "@wormz_channel", false},
		{"https://t.me/wormz_channel/42", 0, "@wormz_channel", false},
		{"https://t.me/wormz_channel?start=x", 0, "@wormz_channel", false},
		{"-1001234567890", -1001234567890, "", false},
		{"https://t.me/+AbCdEf", 0, "", true},
		{"@", 0, "", true},
		{"", 0, "", true},
		{"not a link", 0, "", true},
	}
	for _, tc := range cases {
		id, name, err := parseChatRef(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseChatRef(%q): expected error, got %d %q", tc.in, id, name)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseChatRef(%q): %v", tc.in, err)
			continue
		}
		if id != tc.wantID || name != tc.wantName {
			t.Errorf("parseChatRef(%q) = %d, %q; want %d, %q", tc.in, id, name, tc.wantID, tc.wantName)
		}
	}
}
