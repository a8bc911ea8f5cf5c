package game

import (
	"testing"

	"github.com/jason-s-yu/virus/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Action
	}{
		{
			name: "play card",
			in:   `{"type":"play-card","card":{"id":"c1","type":"virus","color":"red"},"targetPlayerId":"p2","targetColor":"red"}`,
			want: PlayCard{CardID: "c1", TargetPlayerID: "p2", TargetColor: models.ColorRed},
		},
		{
			name: "play card with options",
			in:   `{"type":"play-card","card":{"id":"c9"},"targetColor":"blue","sourceColor":"red","sourcePlayerId":"p1","secondTargetPlayerId":"p3","sacrificeCardId":"c4"}`,
			want: PlayCard{CardID: "c9", TargetColor: models.ColorBlue, PlayOptions: PlayOptions{
				SourceColor: models.ColorRed, SourcePlayerID: "p1", SecondTargetPlayerID: "p3", SacrificeCardID: "c4",
			}},
		},
		{
			name: "discard",
			in:   `{"type":"discard-cards","cards":[{"id":"a"},{"id":"b"}]}`,
			want: DiscardCards{CardIDs: []string{"a", "b"}},
		},
		{name: "end turn", in: `{"type":"end-turn"}`, want: EndTurn{}},
		{name: "restart", in: `{"type":"restart-game"}`, want: RestartGame{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAction([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeActionErrors(t *testing.T) {
	for _, in := range []string{
		`not json`,
		`{"type":"play-card"}`,
		`{"type":"play-card","card":{"id":""}}`,
		`{"type":"discard-cards","cards":[]}`,
		`{"type":"draw-card"}`,
		`{}`,
	} {
		_, err := DecodeAction([]byte(in))
		assert.Error(t, err, in)
	}
}
