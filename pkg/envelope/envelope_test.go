package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeShapes(t *testing.T) {
	cases := []struct {
		name         string
		raw          string
		want         []string
		unrecognized bool
	}{
		{name: "bare array", raw: `[{"id":1},{"id":2}]`, want: []string{`{"id":1}`, `{"id":2}`}},
		{name: "results wrapper", raw: `{"results":[{"id":1},{"id":2},{"id":3}],"count":3}`, want: []string{`{"id":1}`, `{"id":2}`, `{"id":3}`}},
		{name: "data wrapper", raw: `{"data":[{"id":9}]}`, want: []string{`{"id":9}`}},
		{name: "results wins over data", raw: `{"results":[{"id":1}],"data":[{"id":2}]}`, want: []string{`{"id":1}`}},
		{name: "single object wrapped", raw: `{"id":5,"year_name":"1403-1404"}`, want: []string{`{"id":5,"year_name":"1403-1404"}`}},
		{name: "results not an array falls through", raw: `{"results":"oops","id":1}`, want: []string{`{"results":"oops","id":1}`}},
		{name: "empty array", raw: `[]`, want: []string{}},
		{name: "scalar", raw: `42`, unrecognized: true},
		{name: "null", raw: `null`, unrecognized: true},
		{name: "garbage", raw: `{"broken`, unrecognized: true},
		{name: "empty body", raw: ``, unrecognized: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize([]byte(tc.raw))
			assert.Equal(t, tc.unrecognized, got.Unrecognized)
			require.Equal(t, len(tc.want), got.Len())
			for i, want := range tc.want {
				assert.JSONEq(t, want, string(got.Records[i]))
			}
		})
	}
}

func TestNormalizeEmptyObjectIsUnrecognized(t *testing.T) {
	got := Normalize([]byte(`{}`))
	assert.True(t, got.Unrecognized)
	assert.Zero(t, got.Len())
}

func TestNormalizePreservesOrder(t *testing.T) {
	got := Normalize([]byte(`{"results":[{"id":3},{"id":1},{"id":2}]}`))
	ids := make([]int, 0, got.Len())
	for _, raw := range got.Records {
		var rec struct {
			ID int `json:"id"`
		}
		require.NoError(t, json.Unmarshal(raw, &rec))
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []int{3, 1, 2}, ids)
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		`[{"id":1},{"id":2}]`,
		`{"results":[{"id":1}]}`,
		`{"data":[]}`,
		`{"id":7}`,
		`{}`,
		`"scalar"`,
	}
	for _, raw := range inputs {
		first := Normalize([]byte(raw))
		records := first.Records
		if records == nil {
			records = []json.RawMessage{}
		}
		again, err := json.Marshal(records)
		require.NoError(t, err)
		second := Normalize(again)
		assert.False(t, second.Unrecognized, "re-normalizing %s", raw)
		require.Equal(t, first.Len(), second.Len(), "re-normalizing %s", raw)
		for i := range first.Records {
			assert.JSONEq(t, string(first.Records[i]), string(second.Records[i]))
		}
	}
}

func TestDecode(t *testing.T) {
	type row struct {
		ID int `json:"id"`
	}
	list := Normalize([]byte(`{"results":[{"id":1},{"id":2}]}`))
	rows, err := Decode[row](list)
	require.NoError(t, err)
	assert.Equal(t, []row{{ID: 1}, {ID: 2}}, rows)

	_, err = Decode[row](List{Records: []json.RawMessage{json.RawMessage(`"nope"`)}})
	assert.Error(t, err)
}
