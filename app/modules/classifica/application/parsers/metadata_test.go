package parsers

import (
	"testing"
	"time"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindDate(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   time.Time
		wantOK bool
	}{
		{name: "day first numeric", text: "Gara del 05/10/2023", want: time.Date(2023, time.October, 5, 0, 0, 0, 0, time.UTC), wantOK: true},
		{name: "dotted", text: "Roma 1.4.2024", want: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), wantOK: true},
		{name: "iso leap day", text: "Aggiornato 2024-02-29", want: time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), wantOK: true},
		{name: "italian month with accents and case", text: "Domenica 3 Dicembre 2023", want: time.Date(2023, time.December, 3, 0, 0, 0, 0, time.UTC), wantOK: true},
		{name: "earliest wins", text: "dal 12 marzo 2024 al 14/03/2024", want: time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC), wantOK: true},
		{name: "impossible day", text: "31/02/2024", wantOK: false},
		{name: "year out of range", text: "01/01/1890", wantOK: false},
		{name: "no date", text: "Classifica finale", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findDate(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFindRelativeDate(t *testing.T) {
	base := time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)

	got, ok := findRelativeDate([]string{"Results", "Spring Classic, March 5th"}, base)
	require.True(t, ok)
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 5, got.Day())
	assert.Zero(t, got.Hour())

	_, ok = findRelativeDate(nil, base)
	assert.False(t, ok)
}

func TestExtractMetadata(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	t.Run("markup heading", func(t *testing.T) {
		page := []byte(`<html><head><title>Risultati</title></head><body>
<h1>Torneo Città di Roma</h1><p>Bowling Roma, 12 marzo 2024</p>
<table><tr><td>1</td><td>ROSSI MARIO</td><td>200</td></tr></table></body></html>`)
		rows, err := HTMLTokenizer{}.Tokenize(page)
		require.NoError(t, err)

		meta := ExtractMetadata(page, rows, classificadomain.NoColumn, now)
		assert.Equal(t, "Torneo Città di Roma", meta.TournamentName)
		require.NotNil(t, meta.StartDate)
		assert.Equal(t, time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC), *meta.StartDate)
	})

	t.Run("text title line before the header", func(t *testing.T) {
		rows := []classificadomain.RawRow{
			{"Trofeo d'Autunno"},
			{"Pos", "Atleta", "G1"},
			{"1", "ROSSI MARIO", "200"},
		}
		meta := ExtractMetadata([]byte("Trofeo d'Autunno\nPos\tAtleta\tG1"), rows, 1, now)
		assert.Equal(t, "Trofeo d'Autunno", meta.TournamentName)
		assert.Nil(t, meta.StartDate)
	})

	t.Run("without header a heading after the data is not the name", func(t *testing.T) {
		rows := []classificadomain.RawRow{
			{"1", "ROSSI MARIO", "200", "210"},
			{"Categoria Elite"},
			{"1", "VERDI LUCA", "190", "180"},
		}
		meta := ExtractMetadata([]byte("1\tROSSI MARIO\t200\t210\nCategoria Elite\n1\tVERDI LUCA\t190\t180"), rows, classificadomain.NoColumn, now)
		assert.Empty(t, meta.TournamentName)
	})
}
