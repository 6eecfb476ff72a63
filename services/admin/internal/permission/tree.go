package permission

import (
	"cmp"
	"slices"
	"strings"

	"github.com/goback/backoffice/services/admin/internal/model"
)

// 异常节点原因
const (
	ReasonMissingParent = "missing_parent"
	ReasonCycle         = "cycle"
)

// Node 权限树节点
type Node struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Type        string  `json:"type_name"`
	Resource    string  `json:"resource"`
	Action      string  `json:"action"`
	Sort        int     `json:"sort"`
	Description string  `json:"description"`
	ColorStart  string  `json:"color_start"`
	ColorEnd    string  `json:"color_end"`
	Children    []*Node `json:"children"`
}

// Orphan 被提升为根节点的异常权限
type Orphan struct {
	ID       int64
	Code     string
	ParentID int64
	Reason   string
}

// TreeResult 角色权限树
type TreeResult struct {
	Tree        []*Node  `json:"tree"`
	CheckedKeys []int64  `json:"checkedKeys"`
	Orphans     []Orphan `json:"-"`
}

// BuildTree 将扁平的权限表构建为森林。
// 根节点与每一层兄弟节点都按 (code 段数, code, id) 排序。
// parent_id 指向不存在的权限或处于环中的节点会被提升为根节点，并在 orphans 中返回。
// 输出只依赖输入快照，与行的输入顺序无关。
func BuildTree(perms []model.Permission) ([]*Node, []Orphan) {
	index := make(map[int64]int, len(perms))
	for i := range perms {
		index[perms[i].ID] = i
	}

	children := make(map[int][]int, len(perms))
	isChild := make([]bool, len(perms))
	var orphans []Orphan

	for i := range perms {
		pid := perms[i].ParentID
		if pid == nil {
			continue
		}
		p, ok := index[*pid]
		if !ok {
			orphans = append(orphans, Orphan{
				ID:       perms[i].ID,
				Code:     perms[i].Code,
				ParentID: *pid,
				Reason:   ReasonMissingParent,
			})
			continue
		}
		children[p] = append(children[p], i)
		isChild[i] = true
	}

	less := func(a, b int) int {
		pa, pb := &perms[a], &perms[b]
		return cmp.Or(
			cmp.Compare(segments(pa.Code), segments(pb.Code)),
			cmp.Compare(pa.Code, pb.Code),
			cmp.Compare(pa.ID, pb.ID),
		)
	}

	visited := make([]bool, len(perms))
	var build func(i int) *Node
	build = func(i int) *Node {
		visited[i] = true
		node := newNode(&perms[i])
		kids := children[i]
		slices.SortFunc(kids, less)
		for _, c := range kids {
			if !visited[c] {
				node.Children = append(node.Children, build(c))
			}
		}
		return node
	}

	rootIdx := make([]int, 0, len(perms))
	for i := range perms {
		if !isChild[i] {
			rootIdx = append(rootIdx, i)
		}
	}
	slices.SortFunc(rootIdx, less)

	roots := make([]*Node, 0, len(rootIdx))
	for _, i := range rootIdx {
		roots = append(roots, build(i))
	}

	// 剩余未访问的节点要么位于环中，要么是环上节点的后代。
	// 每个环只提升一个成员为根，后代仍挂在原父节点下。
	var rest []int
	for i := range perms {
		if !visited[i] {
			rest = append(rest, i)
		}
	}
	if len(rest) > 0 {
		slices.SortFunc(rest, less)
		for _, i := range rest {
			if visited[i] {
				continue
			}
			h := cycleHead(perms, index, i, less)
			orphans = append(orphans, Orphan{
				ID:       perms[h].ID,
				Code:     perms[h].Code,
				ParentID: *perms[h].ParentID,
				Reason:   ReasonCycle,
			})
			roots = append(roots, build(h))
		}
		slices.SortFunc(roots, func(a, b *Node) int {
			return cmp.Or(
				cmp.Compare(segments(a.Code), segments(b.Code)),
				cmp.Compare(a.Code, b.Code),
				cmp.Compare(a.ID, b.ID),
			)
		})
	}

	return roots, orphans
}

// BuildRoleTree 构建权限树并附带角色已选中的权限ID
func BuildRoleTree(perms []model.Permission, selected []int64) *TreeResult {
	tree, orphans := BuildTree(perms)
	if selected == nil {
		selected = []int64{}
	}
	return &TreeResult{Tree: tree, CheckedKeys: selected, Orphans: orphans}
}

// cycleHead 沿父指针从 i 向上走到第一个重复节点，返回该环中排序最小的成员。
// 调用方保证 i 的祖先链上每个节点的父节点都存在。
func cycleHead(perms []model.Permission, index map[int64]int, i int, less func(a, b int) int) int {
	parent := func(j int) int { return index[*perms[j].ParentID] }

	onPath := make(map[int]bool)
	j := i
	for !onPath[j] {
		onPath[j] = true
		j = parent(j)
	}

	head := j
	for k := parent(j); k != j; k = parent(k) {
		if less(k, head) < 0 {
			head = k
		}
	}
	return head
}

func segments(code string) int {
	return strings.Count(code, ":") + 1
}

func newNode(p *model.Permission) *Node {
	return &Node{
		ID:          p.ID,
		Name:        p.Name,
		Code:        p.Code,
		Type:        p.Type,
		Resource:    p.Resource,
		Action:      p.Action,
		Sort:        p.Sort,
		Description: p.Description,
		ColorStart:  p.ColorStart,
		ColorEnd:    p.ColorEnd,
		Children:    []*Node{},
	}
}
