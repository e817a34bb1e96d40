package parsers

import (
	"reflect"
	"testing"
	"time"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><head><title>FISB - Risultati</title></head><body>
<h1>Torneo Città di Roma</h1>
<p>Bowling Roma, 12 marzo 2024</p>
<h2>Elite Maschile</h2>
<table>
<tr><th>Pos.</th><th>Atleta</th><th>HDP</th><th>G1</th><th>G2</th><th>G3</th><th>Totale</th><th>Media</th></tr>
<tr><td>1</td><td>ROSSI MARIO</td><td>45</td><td>210</td><td>230</td><td>215</td><td>655</td><td>218,3</td></tr>
<tr><td>2</td><td>VERDI LUCA</td><td>0</td><td>200</td><td>190</td><td>180</td><td>570</td><td>190,0</td></tr>
</table>
<h2>Fascia A</h2>
<table>
<tr><th>Pos.</th><th>Atleta</th><th>HDP</th><th>G1</th><th>G2</th><th>G3</th><th>Totale</th><th>Media</th></tr>
<tr><td>1</td><td>BIANCHI LUCA</td><td>10</td><td>150</td><td>160</td><td>170</td><td>480</td><td>160,0</td></tr>
</table>
</body></html>`

func TestParser_Parse_HTML(t *testing.T) {
	p := NewParser(DefaultOptions())

	parsed, err := p.Parse([]byte(samplePage), "classifica.html", "text/html; charset=utf-8")
	require.NoError(t, err)

	assert.Equal(t, "Torneo Città di Roma", parsed.TournamentName)
	require.NotNil(t, parsed.StartDate)
	assert.Equal(t, time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC), *parsed.StartDate)
	assert.Empty(t, parsed.Warnings)

	assert.Equal(t, 0, parsed.Mapping.Rank)
	assert.Equal(t, 1, parsed.Mapping.Name)
	assert.Equal(t, []int{3, 4, 5}, parsed.Mapping.Games)
	assert.Equal(t, 6, parsed.Mapping.Total)
	assert.Equal(t, 7, parsed.Mapping.Average)

	require.Len(t, parsed.Results, 3)

	rossi := parsed.Results[0]
	assert.Equal(t, "ROSSI MARIO", rossi.AthleteName)
	assert.Equal(t, []int{210, 230, 215}, rossi.PerGameScores)
	assert.Equal(t, 655, rossi.TotalPins)
	assert.Equal(t, 1, rossi.Rank)
	assert.Equal(t, "Elite Maschile", *rossi.Division)

	verdi := parsed.Results[1]
	assert.Equal(t, 2, verdi.Rank)
	assert.Equal(t, 570, verdi.TotalPins)

	bianchi := parsed.Results[2]
	assert.Equal(t, 1, bianchi.Rank)
	assert.Equal(t, "Fascia A Maschile", *bianchi.Division)
	assert.Equal(t, 480, bianchi.ScratchTotal)
}

func TestParser_Parse_TextWithoutHeader(t *testing.T) {
	p := NewParser(DefaultOptions(), WithClock(func() time.Time {
		return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	}))

	input := "Femminile\n1\tROSSI ANNA\t72\t180\t190\t185\n2\tBIANCHI ANNA\t170\t160\t150\n"
	parsed, err := p.Parse([]byte(input), "", "")
	require.NoError(t, err)

	assert.Contains(t, parsed.Warnings, ErrNoColumnsInferred.Error())
	assert.True(t, parsed.Mapping.Empty())
	assert.Equal(t, "Femminile", parsed.TournamentName)
	require.Len(t, parsed.Results, 2)
	assert.Equal(t, []int{180, 190, 185}, parsed.Results[0].PerGameScores)
	assert.Equal(t, "Femminile", *parsed.Results[1].Division)
}

func TestParser_Parse_SingleSpacedTextWithHeader(t *testing.T) {
	p := NewParser(DefaultOptions())

	input := "Pos Atleta G1 G2 G3 Tot\n1 ROSSI MARIO 210 230 215 655\n2 DE LUCA MARIO 200 190 180 570\n"
	parsed, err := p.Parse([]byte(input), "", "text/plain")
	require.NoError(t, err)

	assert.Equal(t, 0, parsed.Mapping.Rank)
	assert.Equal(t, 1, parsed.Mapping.Name)
	assert.Equal(t, []int{2, 3, 4}, parsed.Mapping.Games)
	assert.Equal(t, 5, parsed.Mapping.Total)

	require.Len(t, parsed.Results, 2)
	assert.Equal(t, "ROSSI MARIO", parsed.Results[0].AthleteName)
	assert.Equal(t, []int{210, 230, 215}, parsed.Results[0].PerGameScores)
	assert.Equal(t, 655, parsed.Results[0].TotalPins)
	assert.Equal(t, "DE LUCA MARIO", parsed.Results[1].AthleteName)
	assert.Equal(t, 2, parsed.Results[1].Rank)
	assert.Equal(t, 570, parsed.Results[1].TotalPins)
}

func TestParser_Parse_Errors(t *testing.T) {
	p := NewParser(DefaultOptions())

	_, err := p.Parse([]byte("nothing tabular here"), "", "text/plain")
	require.ErrorIs(t, err, ErrNoTabularDataFound)

	_, err = p.Parse([]byte("%PDF-1.4"), "risultati.pdf", "")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParser_Parse_WarnsOnInferredTeamTotal(t *testing.T) {
	p := NewParser(DefaultOptions())

	parsed, err := p.Parse([]byte("1\tROSSI MARIO\t200\t210\t220\t900\n"), "", "")
	require.NoError(t, err)
	require.Len(t, parsed.Results, 1)
	assert.True(t, parsed.Results[0].TeamTotalInferred)
	assert.Len(t, parsed.Warnings, 2)
}

func TestParser_Parse_IsRepeatable(t *testing.T) {
	p := NewParser(DefaultOptions())

	first, err := p.Parse([]byte(samplePage), "", "")
	require.NoError(t, err)
	second, err := p.Parse([]byte(samplePage), "", "")
	require.NoError(t, err)

	assert.True(t, reflect.DeepEqual(first, second))
}

func TestParser_WithColumnRules(t *testing.T) {
	p := NewParser(DefaultOptions(), WithColumnRules(NewColumnRule(classificadomain.RoleName, `^sportivo$`)))

	parsed, err := p.Parse([]byte("Pos\tSportivo\tG1\tG2\n1\tROSSI MARIO\t200\t210\n"), "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, parsed.Mapping.Name)
	require.Len(t, parsed.Results, 1)
	assert.Equal(t, 410, parsed.Results[0].TotalPins)
}

func TestFactory_GetTokenizer(t *testing.T) {
	f := NewFactory()

	tests := []struct {
		name        string
		fileName    string
		contentType string
		data        string
		want        Tokenizer
		wantErr     bool
	}{
		{name: "csv extension", fileName: "scores.CSV", want: CSVTokenizer{}},
		{name: "xlsx extension", fileName: "scores.xlsx", want: XLSXTokenizer{}},
		{name: "html extension", fileName: "a.htm", contentType: "text/html", want: HTMLTokenizer{ContentType: "text/html"}},
		{name: "legacy excel", fileName: "scores.xls", wantErr: true},
		{name: "pdf", fileName: "scores.pdf", wantErr: true},
		{name: "php page by media type", fileName: "/classifica.php", contentType: "text/html; charset=iso-8859-1", want: HTMLTokenizer{ContentType: "text/html; charset=iso-8859-1"}},
		{name: "csv media type", contentType: "text/csv", want: CSVTokenizer{}},
		{name: "sniffed markup", data: "<table><tr><td>1</td></tr></table>", want: HTMLTokenizer{}},
		{name: "plain text", data: "1\tROSSI", want: TextTokenizer{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.GetTokenizer(tt.fileName, tt.contentType, []byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
