package document

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Value {
	return Mapping(map[string]Value{
		"ram": Number(1000),
		"storage": Mapping(map[string]Value{
			"ssd":  Number(256),
			"name": Text("primary"),
		}),
		"tags":    Sequence(Text("a"), Bool(true), Null()),
		"enabled": Bool(false),
		"nothing": Null(),
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "mapping", KindMapping.String())
	assert.Equal(t, "null", Value{}.Kind().String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestAccessors(t *testing.T) {
	n, ok := Number(2.5).AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 2.5, n)

	_, ok = Text("x").AsNumber()
	assert.False(t, ok)

	s, ok := Text("x").AsText()
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	b, ok := Bool(true).AsBool()
	assert.True(t, ok)
	assert.True(t, b)

	seq, ok := Sequence(Number(1), Number(2)).AsSequence()
	assert.True(t, ok)
	assert.Len(t, seq, 2)

	assert.Equal(t, 0, Text("abc").Len())
	assert.Equal(t, 5, sample().Len())
	assert.Equal(t, []string{"enabled", "nothing", "ram", "storage", "tags"}, sample().Keys())
	assert.Nil(t, Number(1).Keys())
}

func TestMappingSharesStorage(t *testing.T) {
	v := EmptyMapping()
	m, ok := v.AsMapping()
	require.True(t, ok)
	m["k"] = Text("v")

	got, ok := v.AsMapping()
	require.True(t, ok)
	assert.Equal(t, Text("v"), got["k"])
}

func TestJSONRoundTrip(t *testing.T) {
	in := sample()
	data, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := Parse(data)
	require.NoError(t, err)
	assert.True(t, in.Equal(out), "got %s", out)

	if diff := cmp.Diff(in.Interface(), out.Interface()); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalEmptyContainers(t *testing.T) {
	data, err := json.Marshal(Mapping(map[string]Value{
		"seq": Sequence(),
		"map": EmptyMapping(),
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":[],"map":{}}`, string(data))
}

func TestMarshalIsDeterministic(t *testing.T) {
	a, err := json.Marshal(sample())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		b, err := json.Marshal(sample())
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	}
}

func TestParseRejectsNonMapping(t *testing.T) {
	for _, in := range []string{`5`, `"text"`, `[1,2]`, `null`, `true`} {
		_, err := Parse([]byte(in))
		assert.True(t, errors.Is(err, ErrNotMapping), "input %s: %v", in, err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte(`{"a":`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotMapping))
}

func TestParseAcceptsSpacedJSON(t *testing.T) {
	v, err := Parse([]byte(`{"ram": 1000, "storage": {"ssd": 512}}`))
	require.NoError(t, err)

	ssd, err := Walk(v, []string{"storage", "ssd"}, false)
	require.NoError(t, err)
	assert.Equal(t, Number(512), ssd)
}

func TestFromInterface(t *testing.T) {
	v, err := FromInterface(map[string]any{
		"i":   42,
		"u":   uint8(7),
		"f":   float32(1.5),
		"s":   "x",
		"b":   true,
		"nil": nil,
		"seq": []any{1, "two"},
		"num": json.Number("3.25"),
	})
	require.NoError(t, err)

	want := Mapping(map[string]Value{
		"i":   Number(42),
		"u":   Number(7),
		"f":   Number(1.5),
		"s":   Text("x"),
		"b":   Bool(true),
		"nil": Null(),
		"seq": Sequence(Number(1), Text("two")),
		"num": Number(3.25),
	})
	assert.True(t, want.Equal(v), "got %s", v)
}

func TestFromInterfaceRejects(t *testing.T) {
	_, err := FromInterface(struct{}{})
	assert.True(t, errors.Is(err, ErrUnsupportedType))

	_, err = FromInterface([]any{make(chan int)})
	assert.True(t, errors.Is(err, ErrUnsupportedType))

	_, err = FromInterface(math.NaN())
	assert.True(t, errors.Is(err, ErrNonFinite))
}

func TestEqual(t *testing.T) {
	assert.True(t, sample().Equal(sample()))
	assert.False(t, Number(1).Equal(Text("1")))
	assert.False(t, Sequence(Number(1)).Equal(Sequence(Number(2))))
	assert.False(t, Mapping(map[string]Value{"a": Null()}).Equal(Mapping(map[string]Value{"b": Null()})))
}

func TestString(t *testing.T) {
	assert.Equal(t, `{"a":[1,"x"]}`, Mapping(map[string]Value{"a": Sequence(Number(1), Text("x"))}).String())
}

func TestCloneIsDeep(t *testing.T) {
	orig := sample()
	c := orig.Clone()
	require.True(t, orig.Equal(c))

	m, _ := c.AsMapping()
	m["ram"] = Number(1)
	storage, _ := m["storage"].AsMapping()
	storage["ssd"] = Number(1)
	tags, _ := m["tags"].AsSequence()
	tags[0] = Text("z")

	if diff := cmp.Diff(sample().Interface(), orig.Interface()); diff != "" {
		t.Errorf("original changed through clone (-want +got):\n%s", diff)
	}
	assert.Equal(t, Number(7), Number(7).Clone())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, sample().Validate())
	assert.NoError(t, Number(math.MaxFloat64).Validate())

	err := Mapping(map[string]Value{
		"a": Sequence(Null(), Number(math.NaN())),
	}).Validate()
	assert.True(t, errors.Is(err, ErrNonFinite))
	assert.Contains(t, err.Error(), `key "a": index 1`)

	assert.True(t, errors.Is(Number(math.Inf(-1)).Validate(), ErrNonFinite))
}
