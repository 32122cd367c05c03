package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_sequencer(t *testing.T) {
	var seq sequencer

	first, second := seq.next(), seq.next()
	assert.True(t, seq.apply(second), "latest issued")
	assert.False(t, seq.apply(first), "resolved after a later reload")

	third := seq.next()
	seq.drop()
	assert.False(t, seq.apply(third), "dropped")
	assert.True(t, seq.apply(seq.next()))
}

func Test_dialog(t *testing.T) {
	var dlg dialog

	assert.NoError(t, dlg.open(Editing, 3))
	assert.Equal(t, Editing, dlg.mode)
	assert.Equal(t, 3, dlg.editID)

	dlg.busy = true
	assert.Equal(t, ErrBusy, dlg.open(Adding, 0))
	assert.Equal(t, Editing, dlg.mode, "unchanged while busy")

	dlg.close()
	assert.Equal(t, dialog{}, dlg)
	assert.Equal(t, "idle", dlg.mode.String())
}

func Test_parseID(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 0},
		{"0", 0},
		{"-1", 0},
		{"1.5", 0},
		{" 7 ", 7},
		{"42", 42},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseID(tt.in))
		})
	}
}
