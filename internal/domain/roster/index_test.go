package roster_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/dietwatch/internal/domain/legislator"
	"github.com/kailas-cloud/dietwatch/internal/domain/roster"
)

func sampleRows() []legislator.Legislator {
	return []legislator.Legislator{
		legislator.New("山田　太郎", "やまだ　たろう", "自由民主党", "衆議院", "幹事長"),
		legislator.New("佐藤花子", "さとうはなこ", "立憲民主党", "参議院", ""),
		legislator.New("鈴木一郎", "すずきいちろう", "自由民主党", "衆議院", ""),
		legislator.New("Abe Ken", "あべけん", "小政党A", "参議院", ""),
		legislator.New("田中次郎", "たなかじろう", "小政党B", "衆議院", ""),
		legislator.New("田中三郎", "たなかさぶろう", "小政党B", "衆議院", ""),
		legislator.New("無所属議員", "むしょぞく", "", "参議院", ""),
		legislator.New("山田太郎", "やまだたろう", "公明党", "参議院", ""),
	}
}

func names(rows []legislator.Legislator) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

func TestFindByName_SpaceInsensitive(t *testing.T) {
	ix := roster.New(sampleRows())

	got := ix.FindByName("山田太郎")
	require.Len(t, got, 2, "duplicate names must both be returned")
	require.Equal(t, "自由民主党", got[0].Party)
	require.Equal(t, "公明党", got[1].Party)

	require.Len(t, ix.FindByName("山田　太郎"), 2)
	require.Empty(t, ix.FindByName("山田"))
}

func TestFindByName_CaseSensitive(t *testing.T) {
	ix := roster.New(sampleRows())
	require.Len(t, ix.FindByName("AbeKen"), 1)
	require.Empty(t, ix.FindByName("abeken"))
}

func TestFindByPartyAndReading(t *testing.T) {
	ix := roster.New(sampleRows())

	tests := []struct {
		name  string
		party string
		query string
		want  []string
	}{
		{name: "party only sorted by yomi", party: "自由民主党", want: []string{"鈴木一郎", "山田太郎"}},
		{name: "reading partial", query: "たなか", want: []string{"田中三郎", "田中次郎"}},
		{name: "name partial with spaces", query: "田中 次", want: []string{"田中次郎"}},
		{name: "case-insensitive latin", query: "abe", want: []string{"AbeKen"}},
		{name: "full-width latin folds", query: "ＡＢＥ", want: []string{"AbeKen"}},
		{name: "party and query", party: "公明党", query: "やまだ", want: []string{"山田太郎"}},
		{name: "no match", query: "存在しない", want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := names(ix.FindByPartyAndReading(tc.party, tc.query))
			require.Equal(t, tc.want, got)
		})
	}

	require.Len(t, ix.FindByPartyAndReading("", ""), len(sampleRows()))
}

func TestPartiesOrderedByPreference(t *testing.T) {
	ix := roster.New(sampleRows())
	got := ix.PartiesOrderedByPreference()
	require.Equal(t, []string{"自由民主党", "立憲民主党", "公明党", "小政党B", "小政党A"}, got)
}

func TestPartiesOrderedByPreference_TieBrokenByName(t *testing.T) {
	rows := []legislator.Legislator{
		legislator.New("a", "", "zz党", "", ""),
		legislator.New("b", "", "aa党", "", ""),
	}
	ix := roster.New(rows, roster.WithPriorityParties([]string{"存在しない党"}))
	require.Equal(t, []string{"aa党", "zz党"}, ix.PartiesOrderedByPreference())
}

func TestMembers_RosterOrder(t *testing.T) {
	ix := roster.New(sampleRows())
	require.Equal(t, []string{"山田太郎", "鈴木一郎"}, names(ix.Members("自由民主党")))
	require.Empty(t, ix.Members("存在しない党"))
}
