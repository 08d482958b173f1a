package cmd

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/restock-notifier/internal/build"
	"github.com/shaharia-lab/restock-notifier/internal/dispatch"
	"github.com/shaharia-lab/restock-notifier/internal/restock"
)

func TestParseNames(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    restock.ProductNameSet
		wantErr bool
	}{
		{
			name:  "several languages",
			pairs: []string{"nl=Honingpot", "en=Honey Jar"},
			want:  restock.ProductNameSet{"nl": "Honingpot", "en": "Honey Jar"},
		},
		{
			name:  "locale tag is normalised",
			pairs: []string{"pt-BR=Pote de Mel"},
			want:  restock.ProductNameSet{"pt": "Pote de Mel"},
		},
		{
			name:  "name may contain equals",
			pairs: []string{"en=A=B"},
			want:  restock.ProductNameSet{"en": "A=B"},
		},
		{name: "missing separator", pairs: []string{"Honey Jar"}, wantErr: true},
		{name: "empty name", pairs: []string{"en= "}, wantErr: true},
		{name: "empty language", pairs: []string{"=Honey"}, wantErr: true},
		{name: "none", pairs: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseNames(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, dispatch.Report{
		BatchID:    "b1",
		Total:      2,
		Sent:       1,
		Deleted:    1,
		SendFailed: 1,
		Duration:   1500 * time.Millisecond,
		Outcomes: []dispatch.Outcome{
			{Registration: restock.EmailRegistration{Email: "ok@example.com", EntryID: "e1"}, State: dispatch.StateDeleted},
			{Registration: restock.EmailRegistration{Email: "bad@example.com", EntryID: "e2"}, State: dispatch.StateSendFailed, Err: errors.New("550 mailbox unavailable")},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "batch b1: 2 registration(s) in 1.5s")
	assert.Contains(t, out, "send failed 1")
	assert.Contains(t, out, "SEND_FAILED bad@example.com (e2): 550 mailbox unavailable")
	assert.NotContains(t, out, "ok@example.com")
}

func TestVersionCmd(t *testing.T) {
	cmd := NewVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, build.String()+"\n", buf.String())
}

func TestRootCommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "notify", "version"})
}

func TestNotifyCmd_RequiresFlags(t *testing.T) {
	cmd := NewNotifyCmd()
	cmd.SetArgs([]string{"--name", "en=Honey Jar"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product-id")
}
