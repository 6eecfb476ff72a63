package permission

import (
	"math/rand"
	"testing"

	"github.com/goback/backoffice/services/admin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func perm(id int64, code string, parent int64) model.Permission {
	p := model.Permission{Code: code, Name: code}
	p.ID = id
	if parent != 0 {
		p.ParentID = &parent
	}
	return p
}

func codes(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Code)
	}
	return out
}

func flatten(nodes []*Node, into map[int64]int) {
	for _, n := range nodes {
		into[n.ID]++
		flatten(n.Children, into)
	}
}

func sample() []model.Permission {
	return []model.Permission{
		perm(1, "system", 0),
		perm(2, "system:user", 1),
		perm(3, "system:user:view", 2),
		perm(4, "system:user:create", 2),
		perm(5, "system:role", 1),
		perm(6, "profile", 0),
		perm(7, "system:menu", 1),
	}
}

func TestBuildTreeStructure(t *testing.T) {
	roots, orphans := BuildTree(sample())
	assert.Empty(t, orphans)

	require.Equal(t, []string{"profile", "system"}, codes(roots))
	system := roots[1]
	assert.Equal(t, []string{"system:menu", "system:role", "system:user"}, codes(system.Children))
	user := system.Children[2]
	assert.Equal(t, []string{"system:user:create", "system:user:view"}, codes(user.Children))
	assert.NotNil(t, roots[0].Children)
	assert.Empty(t, roots[0].Children)
}

func TestBuildTreeEveryNodeOnce(t *testing.T) {
	perms := sample()
	roots, _ := BuildTree(perms)

	seen := map[int64]int{}
	flatten(roots, seen)
	assert.Len(t, seen, len(perms))
	for id, n := range seen {
		assert.Equal(t, 1, n, "permission %d", id)
	}
	for _, r := range roots {
		assert.NotContains(t, []int64{2, 3, 4, 5, 7}, r.ID)
	}
}

func TestBuildTreeRootOrdering(t *testing.T) {
	perms := []model.Permission{
		perm(1, "system:user:view", 0),
		perm(2, "system:user", 0),
		perm(3, "system", 0),
		perm(4, "profile", 0),
	}
	roots, _ := BuildTree(perms)
	assert.Equal(t, []string{"profile", "system", "system:user", "system:user:view"}, codes(roots))
}

func TestBuildTreeDeterministic(t *testing.T) {
	perms := sample()
	first, _ := BuildTree(perms)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]model.Permission(nil), perms...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		again, _ := BuildTree(shuffled)
		assert.Equal(t, first, again)
	}

	// 输入切片不被修改
	assert.Equal(t, sample(), perms)
}

func TestBuildTreeOrphanPromoted(t *testing.T) {
	perms := append(sample(), perm(8, "audit:export", 99))
	roots, orphans := BuildTree(perms)

	assert.Equal(t, []string{"profile", "system", "audit:export"}, codes(roots))
	require.Len(t, orphans, 1)
	assert.Equal(t, Orphan{ID: 8, Code: "audit:export", ParentID: 99, Reason: ReasonMissingParent}, orphans[0])
}

func TestBuildTreeCycleDoesNotLoop(t *testing.T) {
	perms := []model.Permission{
		perm(1, "a", 2),
		perm(2, "a:b", 1),
		perm(3, "root", 0),
		perm(4, "self", 4),
	}
	roots, orphans := BuildTree(perms)

	seen := map[int64]int{}
	flatten(roots, seen)
	assert.Len(t, seen, 4)
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}

	assert.Equal(t, []string{"a", "root", "self"}, codes(roots))
	assert.Equal(t, []string{"a:b"}, codes(roots[0].Children))
	require.Len(t, orphans, 2)
	for _, o := range orphans {
		assert.Equal(t, ReasonCycle, o.Reason)
	}
}

func TestBuildTreeCycleKeepsDescendants(t *testing.T) {
	// z:a 与 z:b 互为父节点，a 挂在 z:a 下且排序靠前
	perms := []model.Permission{
		perm(5, "z:a", 10),
		perm(10, "z:b", 5),
		perm(7, "a", 5),
	}
	roots, orphans := BuildTree(perms)

	assert.Equal(t, []string{"z:a"}, codes(roots))
	assert.Equal(t, []string{"a", "z:b"}, codes(roots[0].Children))
	require.Len(t, orphans, 1)
	assert.Equal(t, Orphan{ID: 5, Code: "z:a", ParentID: 10, Reason: ReasonCycle}, orphans[0])
}

func TestBuildRoleTree(t *testing.T) {
	res := BuildRoleTree(sample(), []int64{1, 3})
	assert.Equal(t, []int64{1, 3}, res.CheckedKeys)
	assert.Len(t, res.Tree, 2)

	empty := BuildRoleTree(nil, nil)
	assert.NotNil(t, empty.Tree)
	assert.NotNil(t, empty.CheckedKeys)
	assert.Empty(t, empty.Orphans)
}
