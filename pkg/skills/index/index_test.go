package index

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skilltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/skills"
)

type staticCatalog []skilltypes.SkillEntry

func (c staticCatalog) Available() []skilltypes.SkillEntry {
	return append([]skilltypes.SkillEntry(nil), c...)
}

func entry(name, desc string, priority skilltypes.Priority, cost int) skilltypes.SkillEntry {
	return skilltypes.SkillEntry{
		Metadata:  skilltypes.SkillMetadata{Name: name, Description: desc, Priority: priority},
		Available: true,
		TokenCost: cost,
	}
}

func TestBuildIndex_Empty(t *testing.T) {
	b := New(staticCatalog(nil))
	assert.Empty(t, b.BuildIndex())
	assert.Empty(t, b.BuildCompactIndex())
	assert.Equal(t, Stats{TotalTokenCost: BaseOverheadTokens, TokenBudget: DefaultTokenBudget}, b.Stats())
}

func TestBuildIndex_Format(t *testing.T) {
	b := New(staticCatalog{
		entry("git-commit", "Writes commit messages", skilltypes.PriorityBuiltin, 30),
		entry("code-review", "Reviews <diffs> & \"quotes\" 'n stuff", skilltypes.PriorityProject, 30),
	})

	expected := "\n---\n\n" +
		"## Available Skills\n\n" +
		"The following skills are available. To use a skill:\n" +
		"- Manual: User types `/skill-name arguments`\n" +
		"- Auto: Call `use_skill(skill_name=\"...\")` tool when a task matches a skill\n\n" +
		"<skills>\n" +
		"  <skill name=\"code-review\">Reviews &lt;diffs&gt; &amp; &quot;quotes&quot; &apos;n stuff</skill>\n" +
		"  <skill name=\"git-commit\">Writes commit messages</skill>\n" +
		"</skills>\n\n" +
		"Call `use_skill` BEFORE writing code or creating files to load expert instructions.\n"

	assert.Equal(t, expected, b.BuildIndex())
}

func TestBuildCompactIndex_IgnoresBudget(t *testing.T) {
	b := New(staticCatalog{
		entry("alpha", "A", skilltypes.PriorityProject, 500),
		entry("beta", "B", skilltypes.PriorityUser, 500),
	}, WithTokenBudget(10))

	assert.Empty(t, b.BuildIndex())
	assert.Equal(t,
		"<skills>\n  <skill name=\"alpha\">A</skill>\n  <skill name=\"beta\">B</skill>\n</skills>",
		b.BuildCompactIndex())
}

func TestBuildIndex_StopsAtFirstMisfit(t *testing.T) {
	// 150 + 100 = 250 fits; +200 = 450 exceeds 300; the cheaper third skill
	// would fit but packing stops at the first misfit.
	b := New(staticCatalog{
		entry("first", "1", skilltypes.PriorityProject, 100),
		entry("second", "2", skilltypes.PriorityUser, 200),
		entry("third", "3", skilltypes.PriorityBuiltin, 10),
	}, WithTokenBudget(300))

	idx := b.BuildIndex()
	assert.Contains(t, idx, `name="first"`)
	assert.NotContains(t, idx, `name="second"`)
	assert.NotContains(t, idx, `name="third"`)

	assert.Equal(t, Stats{
		TotalAvailable:  3,
		IncludedInIndex: 1,
		TotalTokenCost:  460,
		TokenBudget:     300,
		Truncated:       true,
	}, b.Stats())
}

func TestBuildIndex_BudgetLaw(t *testing.T) {
	catalog := staticCatalog{
		entry("a1", "x", skilltypes.PriorityProject, 40),
		entry("a2", "x", skilltypes.PriorityProject, 55),
		entry("b1", "x", skilltypes.PriorityUser, 70),
		entry("c1", "x", skilltypes.PriorityBuiltin, 25),
	}
	total := BaseOverheadTokens + 40 + 55 + 70 + 25

	for budget := 100; budget <= total+50; budget += 5 {
		b := New(catalog, WithTokenBudget(budget))
		stats := b.Stats()

		included := catalog[:stats.IncludedInIndex]
		used := BaseOverheadTokens
		for _, e := range included {
			used += e.TokenCost
		}
		if stats.IncludedInIndex > 0 {
			assert.LessOrEqual(t, used, budget)
		}
		assert.Equal(t, stats.IncludedInIndex, strings.Count(b.BuildIndex(), "<skill name="))

		if total <= budget {
			assert.False(t, stats.Truncated, "budget %d", budget)
			assert.Equal(t, stats.TotalAvailable, stats.IncludedInIndex)
		} else {
			assert.True(t, stats.Truncated, "budget %d", budget)
		}
	}
}

func TestStats_EmptyCatalogAgainstOverhead(t *testing.T) {
	stats := New(staticCatalog{}, WithTokenBudget(BaseOverheadTokens-1)).Stats()
	assert.Zero(t, stats.IncludedInIndex)
	assert.Equal(t, BaseOverheadTokens, stats.TotalTokenCost)
	assert.True(t, stats.Truncated)

	stats = New(staticCatalog{}, WithTokenBudget(BaseOverheadTokens)).Stats()
	assert.False(t, stats.Truncated)
}

func TestBuildIndex_ExactFit(t *testing.T) {
	b := New(staticCatalog{entry("alpha", "A", skilltypes.PriorityProject, 50)}, WithTokenBudget(200))
	assert.NotEmpty(t, b.BuildIndex())
	assert.False(t, b.Stats().Truncated)
}

func TestSkillListAndCost(t *testing.T) {
	b := New(staticCatalog{
		entry("zeta", "Z", skilltypes.PriorityBuiltin, 21),
		entry("alpha", "A", skilltypes.PriorityProject, 22),
	})

	list := b.SkillList()
	require.Len(t, list, 2)
	assert.Equal(t, skilltypes.SkillSummary{Name: "alpha", Description: "A", TokenCost: 22}, list[0])
	assert.Equal(t, "zeta", list[1].Name)
	assert.Equal(t, 150+21+22, b.IndexCost())
	assert.Equal(t, DefaultTokenBudget, b.TokenBudget())
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "&amp;lt;", EscapeXML("&lt;"))
	assert.Equal(t, "plain 代码", EscapeXML("plain 代码"))
}
