package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleObject = `$PBExportHeader$n_cst_util.sru
forward
global type n_cst_util from nonvisualobject
end type
end forward

global type n_cst_util from nonvisualobject
end type

public function integer of_add (integer a, integer b)
  return a + b
end function

private subroutine of_reset ()
  ii_count = 0

end subroutine

event constructor;
  of_reset()
end event
`

func TestSplit_SingleFunction(t *testing.T) {
	s := New(nil)
	split := s.Split("function void of_test(integer a)\n  return\nend function")

	assert.Equal(t, "", split.HeaderText())
	require.Len(t, split.Members, 1)

	m := split.Members[0]
	assert.Equal(t, KindFunction, m.Kind)
	assert.Equal(t, "function_of_test.txt", m.Name)
	assert.True(t, m.Closed)
	assert.Equal(t, "  return\n", m.Body(s.Dialect()))
}

func TestSplit_MembersAndHeader(t *testing.T) {
	split := New(nil).Split(sampleObject)

	require.Len(t, split.Members, 3)
	assert.Equal(t, "function_of_add.txt", split.Members[0].Name)
	assert.Equal(t, "subroutine_of_reset.txt", split.Members[1].Name)
	assert.Equal(t, "event_constructor.txt", split.Members[2].Name)

	header := split.HeaderText()
	assert.True(t, strings.HasPrefix(header, "$PBExportHeader$n_cst_util.sru\n"))
	assert.Contains(t, header, "global type n_cst_util from nonvisualobject")
	assert.NotContains(t, header, "return a + b")

	assert.Equal(t, "  ii_count = 0\n", split.Members[1].Body(nil))
	assert.Equal(t, "  of_reset()\n", split.Members[2].Body(nil))
}

func TestSplit_Reconstruction(t *testing.T) {
	inputs := []string{
		sampleObject,
		"",
		"no members at all\njust text",
		"function long f()\nreturn 1\n",                // unclosed
		"event e1;\nend event\nevent e2;\nend event\n", // back to back
		"  end function\nfunction long g()\nend subroutine\ntrailer",
	}

	for _, in := range inputs {
		split := New(nil).Split(in)
		assert.Equal(t, strings.Split(in, "\n"), split.Lines(), "input %q", in)
	}
}

func TestSplit_UnclosedMemberIsFlushed(t *testing.T) {
	split := New(nil).Split("header\nfunction long f()\n  return 1\n")

	require.Len(t, split.Members, 1)
	m := split.Members[0]
	assert.False(t, m.Closed)
	assert.False(t, m.KindMismatch())
	assert.Equal(t, "  return 1\n", m.Body(nil))
	assert.Equal(t, "header\n", split.HeaderText())
}

func TestSplit_KindMismatchAccepted(t *testing.T) {
	split := New(nil).Split("subroutine of_x()\n  x = 1\nend function\n")

	require.Len(t, split.Members, 1)
	m := split.Members[0]
	assert.True(t, m.Closed)
	assert.Equal(t, KindSubroutine, m.Kind)
	assert.Equal(t, KindFunction, m.EndKind)
	assert.True(t, m.KindMismatch())

	// The closing line names another kind, so it stays in the body.
	assert.Equal(t, "  x = 1\nend function\n", m.Body(nil))
}

func TestSplit_StartLineInsideMemberIsBody(t *testing.T) {
	split := New(nil).Split("function long f()\nfunction long g()\nend function\n")

	require.Len(t, split.Members, 1)
	assert.Equal(t, "function_f.txt", split.Members[0].Name)
	assert.Equal(t, "function long g()\n", split.Members[0].Body(nil))
}

func TestStripWrappers(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind Kind
		want string
	}{
		{"full", "function long f()\n  a\n\nend function\n", KindFunction, "  a\n"},
		{"case insensitive end", "EVENT open;\n  a\nEnd Event", KindEvent, "  a\n"},
		{"no closer", "subroutine s()\n  a\n  b\n\n", KindSubroutine, "  a\n  b\n"},
		{"only wrappers", "function long f()\nend function", KindFunction, ""},
		{"other kind closer kept", "event e;\n  a\nend function", KindEvent, "  a\nend function\n"},
		{"one closer only", "function long f()\nend function\nend function", KindFunction, "end function\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripWrappers(tt.raw, tt.kind, nil))
		})
	}
}

func TestStripWrappers_Idempotent(t *testing.T) {
	raw := "public function string of_name ()\n  string ls\n  return ls\nend function\n"

	once := StripWrappers(raw, KindFunction, nil)
	twice := StripWrappers(once, KindFunction, nil)

	assert.Equal(t, "  string ls\n  return ls\n", once)
	assert.Equal(t, once, twice)
}

func TestExtractSingleMember(t *testing.T) {
	t.Run("malformed modifier falls back", func(t *testing.T) {
		text := "forward prototypes\nglobal function long f_calc (long a)\nend prototypes\n\n" +
			"global function long f_calc (long a);\n  return a * 2\nend function\n"

		split := New(nil).Split(text)
		require.Empty(t, split.Members)

		body, ok := ExtractSingleMember(text, nil)
		require.True(t, ok)
		assert.Equal(t, "return a * 2\n", body)
	})

	t.Run("no closer", func(t *testing.T) {
		_, ok := ExtractSingleMember("global type w_main from window\nend type\n", nil)
		assert.False(t, ok)
	})

	t.Run("no opener", func(t *testing.T) {
		_, ok := ExtractSingleMember("something\nend function\n", nil)
		assert.False(t, ok)
	})

	t.Run("opener must match closer kind", func(t *testing.T) {
		_, ok := ExtractSingleMember("global subroutine s()\n  x\nend function\n", nil)
		assert.False(t, ok)
	})

	t.Run("empty body", func(t *testing.T) {
		body, ok := ExtractSingleMember("global function long f()\n\nend function", nil)
		assert.True(t, ok)
		assert.Equal(t, "", body)
	})

	t.Run("last implementation wins", func(t *testing.T) {
		text := "global function long a()\n  one\nend function\nglobal function long b()\n  two\nend function\n"
		body, ok := ExtractSingleMember(text, nil)
		require.True(t, ok)
		assert.Equal(t, "two\n", body)
	})
}

func TestArtifacts_Collisions(t *testing.T) {
	text := "function long of_x()\n  first\nend function\n" +
		"function long of_x(int a)\n  second\nend function\n" +
		"event clicked;\n  ev\nend event\n"
	split := New(nil).Split(text)

	t.Run("overwrite keeps last", func(t *testing.T) {
		arts, collided := split.Artifacts(nil, Overwrite)
		require.Len(t, arts, 2)
		assert.Equal(t, []string{"function_of_x.txt"}, collided)
		assert.Equal(t, "event_clicked.txt", arts[0].Name)
		assert.Equal(t, "function_of_x.txt", arts[1].Name)
		assert.Equal(t, "  second\n", arts[1].Body)
	})

	t.Run("suffix keeps both", func(t *testing.T) {
		arts, collided := split.Artifacts(nil, Suffix)
		require.Len(t, arts, 3)
		assert.Equal(t, []string{"function_of_x.txt"}, collided)

		byName := map[string]string{}
		for _, a := range arts {
			byName[a.Name] = a.Body
		}
		assert.Equal(t, "  first\n", byName["function_of_x.txt"])
		assert.Equal(t, "  second\n", byName["function_of_x_2.txt"])
	})
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "a_b_c", Sanitize("  a<b>  c "))
	assert.Equal(t, "x_y", Sanitize(`x:"/\|?*y`))
	assert.Equal(t, "", Sanitize("___"))

	assert.Equal(t, "w_main", Stem(`C:\src\w_main.srw`))
	assert.Equal(t, "n_cst", Stem("lib/n_cst.sru"))
	assert.Equal(t, "archive.tar", Stem("archive.tar.gz"))

	assert.Equal(t, "of_add", Identifier(KindFunction, "integer of_add (integer a)"))
	assert.Equal(t, "solo", Identifier(KindFunction, "solo"))
	assert.Equal(t, "clicked", Identifier(KindEvent, "clicked;"))
	assert.Equal(t, "unknown", Identifier(KindSubroutine, "();"))

	assert.Equal(t, "event_ue_custom.txt", ArtifactName(KindEvent, "ue_custom ( )"))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Event ")
	require.NoError(t, err)
	assert.Equal(t, KindEvent, k)

	_, err = ParseKind("type")
	assert.Error(t, err)
}
