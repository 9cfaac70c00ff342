package typograf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func mustNew(t *testing.T, locales ...string) *Typograf {
	t.Helper()
	tp, err := New(locales...)
	require.NoError(t, err)
	return tp
}

func TestNewLocales(t *testing.T) {
	tests := []struct {
		locales []string
		want    language.Tag
		wantErr bool
	}{
		{[]string{"ru", "en-US"}, language.Russian, false},
		{[]string{"ru-RU"}, language.Russian, false},
		{[]string{"en-US", "ru"}, language.AmericanEnglish, false},
		{[]string{"en-GB"}, language.AmericanEnglish, false},
		{[]string{"de"}, language.Und, true},
		{[]string{"ru", "!!"}, language.Und, true},
		{nil, language.Und, true},
	}

	for _, tt := range tests {
		tp, err := New(tt.locales...)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.locales)
			continue
		}
		require.NoError(t, err, "%v", tt.locales)
		assert.Equal(t, tt.want, tp.Locale())
	}
}

func TestProcessRussian(t *testing.T) {
	tp := mustNew(t, "ru", "en-US")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "quotes ellipsis short words",
			input: `<p>Он сказал "привет" и ушел...</p>`,
			want:  `<p>Он&nbsp;сказал «привет» и&nbsp;ушел…</p>`,
		},
		{
			name:  "nested quotes",
			input: `<p>"a "b" c"</p>`,
			want:  `<p>«a&nbsp;„b“ c»</p>`,
		},
		{
			name:  "dash",
			input: `<p>Москва - столица</p>`,
			want:  `<p>Москва&nbsp;— столица</p>`,
		},
		{
			name:  "quotes across inline markup",
			input: `<p>"<b>bold</b>" text</p>`,
			want:  `<p>«<b>bold</b>» text</p>`,
		},
		{
			name:  "empty quotes close at once",
			input: `<p>Пустые "" кавычки и "слово"</p>`,
			want:  `<p>Пустые «» кавычки и&nbsp;«слово»</p>`,
		},
		{
			name:  "unclosed quote ends with its paragraph",
			input: `<p>Он "незакрытая</p><p>"слово"</p>`,
			want:  `<p>Он&nbsp;«незакрытая</p><p>«слово»</p>`,
		},
		{
			name:  "list items start fresh",
			input: `<ul><li>"one</li><li>"two"</li></ul>`,
			want:  `<ul><li>«one</li><li>«two»</li></ul>`,
		},
		{
			name:  "double spaces",
			input: `<p>word   other</p>`,
			want:  `<p>word other</p>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tp.Process([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestProcessEnglish(t *testing.T) {
	tp := mustNew(t, "en-US")

	out, err := tp.Process([]byte(`<p>"Hello" - world (c) 2024 +-1 (TM) (r)</p>`))
	require.NoError(t, err)
	assert.Equal(t, `<p>“Hello” — world © 2024 ±1 ™ ®</p>`, string(out))

	out, err = tp.Process([]byte(`<p>&quot;hi&quot;</p>`))
	require.NoError(t, err)
	assert.Equal(t, `<p>“hi”</p>`, string(out))
}

func TestSkippedElements(t *testing.T) {
	tp := mustNew(t, "ru")

	input := `<!DOCTYPE html><!-- "x" --><pre>"x" ...</pre><code>(c)</code><script>if (a - b) { s = "q" }</script><style>a::after{content:"..."}</style><textarea>"t"</textarea>`
	out, err := tp.Process([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, input, string(out))
}

func TestAttributesUntouched(t *testing.T) {
	tp := mustNew(t, "en-US")

	input := `<a title="a - b ..." href="/x">go</a>`
	out, err := tp.Process([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, input, string(out))
}

func TestIdempotent(t *testing.T) {
	tp := mustNew(t, "ru")

	once, err := tp.Process([]byte(`<p>Он сказал "привет" и ушел... Москва - столица (c)</p>`))
	require.NoError(t, err)
	twice, err := tp.Process(once)
	require.NoError(t, err)
	assert.Equal(t, string(once), string(twice))
}

func TestString(t *testing.T) {
	tp := mustNew(t, "en-US")
	assert.Equal(t, "wait…", tp.String("wait..."))
	assert.Equal(t, "   ", tp.String("   "))
}
