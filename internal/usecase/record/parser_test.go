package record

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kifu/internal/domain/kif"
	errs "kifu/internal/errors"
)

const sampleKIF = `# ---- Kifu for Windows V7 V7.40 棋譜ファイル ----
開始日時：2024/01/01 10:00:00
先手：先手太郎
後手：後手花子
手合割：平手
手数----指手---------消費時間--
   1 ７六歩(77)   ( 0:00/00:00:00)
   2 ３四歩(33)   ( 0:00/00:00:00)
   3 ２六歩(27)   ( 0:00/00:00:00)
   4 ８四歩(83)   ( 0:00/00:00:00)
   5 投了
まで4手で後手の勝ち

変化：3手
   3 ６六歩(67)   ( 0:00/00:00:00)
   4 ８四歩(83)   ( 0:00/00:00:00)

変化：4手
   4 ４四歩(43)   ( 0:00/00:00:00)
`

// leading single-digit move numbers, column 0..1
var plainScanner = ScannerConfig{MainLineMarker: "手数", VariationMarker: "変化", From: 0, To: 1}

func texts(moves []kif.MoveRecord) []string {
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		out = append(out, m.Text)
	}
	return out
}

func childWithFirstMove(t *testing.T, tree *kif.Tree, parent kif.SequenceID, text string) kif.SequenceID {
	t.Helper()
	children, err := tree.Children(parent)
	require.NoError(t, err)
	for _, id := range children {
		moves, err := tree.Moves(id)
		require.NoError(t, err)
		if len(moves) > 0 && moves[0].Text == text {
			return id
		}
	}
	t.Fatalf("no child of %d starts with %q", parent, text)
	return kif.NoSequence
}

func TestParseMoveRecord(t *testing.T) {
	cfg := DefaultScannerConfig()

	tests := []struct {
		name     string
		line     string
		recorded bool
		number   int
		text     string
	}{
		{name: "kif move", line: "   1 ７六歩(77)   ( 0:00/00:00:00)", recorded: true, number: 1, text: "７六歩(77)"},
		{name: "three digits", line: " 123 同　歩(24)", recorded: true, number: 123, text: "同　歩(24)"},
		{name: "resign without time", line: "   5 投了", recorded: true, number: 5, text: "投了"},
		{name: "too short", line: "  1", recorded: false},
		{name: "empty", line: "", recorded: false},
		{name: "not a number", line: "まで4手で後手の勝ち", recorded: false},
		{name: "comment", line: "*良い手", recorded: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ParseMoveRecord(tt.line, cfg)

			assert.Equal(t, tt.recorded, rec.IsRecorded())
			assert.Equal(t, tt.line, rec.RawText)
			if tt.recorded {
				assert.Equal(t, tt.number, rec.SourceMoveNumber)
				assert.Equal(t, tt.text, rec.Text)
			}
		})
	}
}

func TestParseMoveRecord_BadColumnConfig(t *testing.T) {
	rec := ParseMoveRecord("   1 ７六歩(77)", ScannerConfig{From: 3, To: 3})
	assert.False(t, rec.IsRecorded())
}

func TestParser_EndToEnd(t *testing.T) {
	lines := []string{"手数", "1 move-a", "2 move-b", "3 move-c", "4 move-d", "", "変化：3手", "3 move-c-alt", "", ""}

	p := NewParser(plainScanner, nil)
	require.NoError(t, p.Parse(lines))
	tree := p.Tree()
	require.NoError(t, tree.Validate())

	root, err := tree.Get(tree.RootID())
	require.NoError(t, err)
	assert.Equal(t, []string{"move-a", "move-b"}, texts(root.Moves))
	require.Len(t, root.FollowUps, 2)

	cont := childWithFirstMove(t, tree, tree.RootID(), "move-c")
	variation := childWithFirstMove(t, tree, tree.RootID(), "move-c-alt")

	contSeq, err := tree.Get(cont)
	require.NoError(t, err)
	assert.Equal(t, 3, contSeq.Start)
	assert.Equal(t, []string{"move-c", "move-d"}, texts(contSeq.Moves))

	varSeq, err := tree.Get(variation)
	require.NoError(t, err)
	assert.Equal(t, 3, varSeq.Start)
	assert.Equal(t, []string{"move-c-alt"}, texts(varSeq.Moves))

	main, err := tree.Line(cont)
	require.NoError(t, err)
	assert.Equal(t, []string{"move-a", "move-b", "move-c", "move-d"}, texts(main))
	assert.Equal(t, AwaitingSection, p.State())
}

func TestParser_KIFSample(t *testing.T) {
	lines, err := DecodeLines(strings.NewReader(sampleKIF), "utf-8")
	require.NoError(t, err)

	p := NewParser(DefaultScannerConfig(), nil)
	require.NoError(t, p.Parse(lines))
	tree := p.Tree()
	require.NoError(t, tree.Validate())

	assert.Equal(t, []kif.Header{
		{Key: "開始日時", Value: "2024/01/01 10:00:00"},
		{Key: "先手", Value: "先手太郎"},
		{Key: "後手", Value: "後手花子"},
		{Key: "手合割", Value: "平手"},
	}, p.Headers())
	assert.Equal(t, 1, p.Unrecognized(), "the result line is skipped")

	root, err := tree.Get(tree.RootID())
	require.NoError(t, err)
	assert.Equal(t, []string{"７六歩(77)", "３四歩(33)"}, texts(root.Moves))

	mainCont := childWithFirstMove(t, tree, tree.RootID(), "２六歩(27)")
	mainLine, err := tree.Line(mainCont)
	require.NoError(t, err)
	assert.Equal(t, []string{"７六歩(77)", "３四歩(33)", "２六歩(27)", "８四歩(83)", "投了"}, texts(mainLine))

	// 変化：4手 branches inside the 変化：3手 line, not the main line
	variation3 := childWithFirstMove(t, tree, tree.RootID(), "６六歩(67)")
	v3, err := tree.Get(variation3)
	require.NoError(t, err)
	assert.Equal(t, []string{"６六歩(67)"}, texts(v3.Moves))

	alt := childWithFirstMove(t, tree, variation3, "４四歩(43)")
	altLine, err := tree.Line(alt)
	require.NoError(t, err)
	assert.Equal(t, []string{"７六歩(77)", "３四歩(33)", "６六歩(67)", "４四歩(43)"}, texts(altLine))

	kept := childWithFirstMove(t, tree, variation3, "８四歩(83)")
	keptSeq, err := tree.Get(kept)
	require.NoError(t, err)
	assert.Equal(t, 4, keptSeq.Start)
}

func TestParser_StateTransitions(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  State
	}{
		{name: "initial", lines: nil, want: AwaitingSection},
		{name: "ignores other lines", lines: []string{"先手：A", "", "random"}, want: AwaitingSection},
		{name: "main line", lines: []string{"手数----"}, want: InMainLine},
		{name: "main line ends on blank", lines: []string{"手数", "1 a", ""}, want: AwaitingSection},
		{name: "variation header", lines: []string{"手数", "1 a", "", "変化：1手"}, want: VariationStarting},
		{name: "variation body", lines: []string{"手数", "1 a", "", "変化：2手", "2 b"}, want: InVariationBody},
		{name: "unparsable variation start still consumed", lines: []string{"手数", "1 a", "", "変化：2手", "x"}, want: InVariationBody},
		{name: "whitespace only line keeps the section open", lines: []string{"手数", "1 a", "  \t"}, want: InMainLine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(plainScanner, nil)
			require.NoError(t, p.Parse(tt.lines))
			assert.Equal(t, tt.want, p.State())
		})
	}
}

func TestParser_UnrecognizedLineDoesNotTouchTree(t *testing.T) {
	p := NewParser(plainScanner, nil)
	require.NoError(t, p.Parse([]string{"手数", "1 a", "2 b"}))
	before := p.Tree().Document()

	rec, err := p.Feed("x not a move")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.False(t, rec.IsRecorded())
	assert.Equal(t, 3+1, rec.Line)

	assert.Equal(t, before, p.Tree().Document())
	assert.Equal(t, InMainLine, p.State())
	assert.Equal(t, 1, p.Unrecognized())
}

func TestParser_OnlyEmptyLineEndsSection(t *testing.T) {
	for _, filler := range []string{" ", "\u3000", "\t"} {
		t.Run(fmt.Sprintf("%q", filler), func(t *testing.T) {
			p := NewParser(plainScanner, nil)
			require.NoError(t, p.Parse([]string{"手数", "1 a", filler, "2 b", "3 c"}))

			moves, err := p.Tree().Moves(p.Tree().RootID())
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b", "c"}, texts(moves))
			assert.Equal(t, InMainLine, p.State())
			assert.Equal(t, 1, p.Unrecognized())
		})
	}
}

func TestParser_UnparsableVariationHeaderOpensNoBranch(t *testing.T) {
	p := NewParser(plainScanner, nil)
	require.NoError(t, p.Parse([]string{"手数", "1 a", "2 b", "", "変化：2手", "?? broken"}))

	tree := p.Tree()
	assert.Equal(t, 1, tree.Len())
	assert.Equal(t, InVariationBody, p.State())
}

func TestParser_NestedVariation(t *testing.T) {
	lines := []string{
		"手数", "1 a", "2 b", "3 c", "4 d", "",
		"変化：3手", "3 c2", "",
		"変化：2手", "2 b2", "3 c3", "",
	}
	p := NewParser(plainScanner, nil)
	require.NoError(t, p.Parse(lines))
	tree := p.Tree()
	require.NoError(t, tree.Validate())

	root, err := tree.Get(tree.RootID())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, texts(root.Moves))

	cont := childWithFirstMove(t, tree, tree.RootID(), "b")
	children, err := tree.Children(cont)
	require.NoError(t, err)
	assert.Len(t, children, 2, "c and c2 now hang off the continuation")

	alt := childWithFirstMove(t, tree, tree.RootID(), "b2")
	line, err := tree.Line(alt)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b2", "c3"}, texts(line))
}

func TestParser_OrphanBranchPoint(t *testing.T) {
	lines := []string{"手数", "1 a", "2 b", "", "変化：9手", "9 z", "", "手数", "3 c"}

	p := NewParser(plainScanner, nil)
	err := p.Parse(lines)

	var orphan *kif.OrphanBranchPointError
	require.True(t, errors.As(err, &orphan))
	assert.Equal(t, 9, orphan.Move)
	assert.True(t, errors.Is(err, errs.ErrOrphanBranchPoint))

	_, again := p.Feed("3 c")
	assert.Equal(t, err, again)

	moves, mErr := p.Tree().Moves(p.Tree().RootID())
	require.NoError(t, mErr)
	assert.Len(t, moves, 2)
}
