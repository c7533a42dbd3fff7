package feed

import (
	"container/heap"

	"DProject/module/dialog/model"
)

// keyLess 复合键 (created_at_ms, message_id) 的全序比较。
// message_id 是定长十进制雪花串，字典序与数值序一致，和存储层的比较语义相同。
func keyLess(a, b *model.Message) bool {
	if a.CreatedAtMS != b.CreatedAtMS {
		return a.CreatedAtMS < b.CreatedAtMS
	}
	return a.MessageID < b.MessageID
}

type mergeItem struct {
	msg *model.Message
	src int // 来源列表下标
	idx int // 列表内下标
}

type mergeHeap struct {
	items []*mergeItem
	asc   bool
}

func (h *mergeHeap) Len() int { return len(h.items) }
func (h *mergeHeap) Less(i, j int) bool {
	if h.asc {
		return keyLess(h.items[i].msg, h.items[j].msg)
	}
	return keyLess(h.items[j].msg, h.items[i].msg)
}
func (h *mergeHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *mergeHeap) Push(x any)         { h.items = append(h.items, x.(*mergeItem)) }
func (h *mergeHeap) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	return it
}

// kMerge 多路归并。每个输入列表已按请求方向排好序（各自来自单会话的有序查询），
// 全局有序性只依赖列表内有序，不依赖任何跨会话索引。返回前 limit 条。
func kMerge(lists [][]*model.Message, limit int, asc bool) []*model.Message {
	h := &mergeHeap{asc: asc}
	for src, list := range lists {
		if len(list) > 0 {
			h.items = append(h.items, &mergeItem{msg: list[0], src: src, idx: 0})
		}
	}
	heap.Init(h)

	out := make([]*model.Message, 0, limit)
	for h.Len() > 0 && len(out) < limit {
		it := heap.Pop(h).(*mergeItem)
		out = append(out, it.msg)
		if next := it.idx + 1; next < len(lists[it.src]) {
			heap.Push(h, &mergeItem{msg: lists[it.src][next], src: it.src, idx: next})
		}
	}
	return out
}
