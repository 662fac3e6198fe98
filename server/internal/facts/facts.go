// Package facts 提供家族事实树的纯函数操作：深合并、点路径读写、
// 以及 _unknown / _unparsed 两类保留记录的维护。
// 本包不依赖任何外部服务，保证可独立单测。
package facts

import "strings"

// Tree 是嵌套的家族事实映射。键在同层唯一，顺序无意义。
type Tree = map[string]any

// Merge 将 src 深合并进 dst 并返回 dst。
// 两侧同键且都是嵌套映射时递归合并；否则新值覆盖旧值。
// 合并只会细化或新增，不会丢掉 src 未触及的旧事实。
func Merge(dst, src Tree) Tree {
	if dst == nil {
		dst = Tree{}
	}
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		old, ok := dst[k].(map[string]any)
		if !ok {
			// 旧值不是映射，整块覆盖（拷贝一份，避免共享内层）。
			dst[k] = Merge(Tree{}, sub)
			continue
		}
		dst[k] = Merge(old, sub)
	}
	return dst
}

// Resolve 按点路径（如 "father.origin"）读取事实，路径不存在时返回 nil。
func Resolve(t Tree, path string) any {
	if t == nil || path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	var cur any = map[string]any(t)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[p]
		if !ok {
			return nil
		}
	}
	return cur
}

// IsFilled 报告点路径是否已有非空值。
// 空字符串、空映射、空列表都视为未填。
func IsFilled(t Tree, path string) bool {
	switch v := Resolve(t, path).(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case map[string]any:
		return len(v) > 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

// Set 按点路径写入一个值，中间层级不存在时创建。
func Set(t Tree, path string, value any) {
	parts := strings.Split(path, ".")
	cur := t
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}
