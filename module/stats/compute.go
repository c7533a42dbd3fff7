package stats

import (
	"DProject/module/stats/model"
)

// PackInputs 重算一个 pack 所需的全部底表快照。
// 先取快照再纯函数计算，保证同一份快照算两遍结果逐字节一致。
type PackInputs struct {
	TenantID string
	PackID   string

	DialogIDs   []string
	DialogStats map[string]*model.DialogStats   // dialog_id → 会话计数
	Members     map[string][]string             // dialog_id → 成员
	Topics      map[string][]string             // dialog_id → 话题
	Unread      []*model.UserDialogStats        // pack 会话下的全部未读行
}

// ComputePackStats 聚合 pack 级指标。
// sum 口径允许同一用户/话题在多个会话里重复计入，unique 口径跨会话去重，二者是不同指标。
func ComputePackStats(in PackInputs) *model.PackStats {
	out := &model.PackStats{TenantID: in.TenantID, PackID: in.PackID}

	uniqueMembers := map[string]struct{}{}
	uniqueTopics := map[string]struct{}{}

	for _, dialogID := range in.DialogIDs {
		if ds, ok := in.DialogStats[dialogID]; ok {
			out.MessageCount += ds.MessageCount
		}
		members := in.Members[dialogID]
		out.SumMemberCount += int64(len(members))
		for _, uid := range members {
			uniqueMembers[uid] = struct{}{}
		}
		topics := in.Topics[dialogID]
		out.SumTopicCount += int64(len(topics))
		for _, tid := range topics {
			uniqueTopics[tid] = struct{}{}
		}
	}
	out.UniqueMemberCount = int64(len(uniqueMembers))
	out.UniqueTopicCount = int64(len(uniqueTopics))
	return out
}

// ComputeUserPackStats 对 pack 内至少属于一个会话的每个用户：
// unread = Σ 该用户所属会话的 unread_count。未读行存在但用户已退群的不计。
func ComputeUserPackStats(in PackInputs) map[string]*model.UserPackStats {
	membership := map[string]map[string]struct{}{} // user_id → 所属 dialog 集合
	for dialogID, users := range in.Members {
		for _, uid := range users {
			if membership[uid] == nil {
				membership[uid] = map[string]struct{}{}
			}
			membership[uid][dialogID] = struct{}{}
		}
	}

	out := make(map[string]*model.UserPackStats, len(membership))
	for uid := range membership {
		out[uid] = &model.UserPackStats{TenantID: in.TenantID, PackID: in.PackID, UserID: uid}
	}
	for _, row := range in.Unread {
		dialogs, ok := membership[row.UserID]
		if !ok {
			continue
		}
		if _, member := dialogs[row.DialogID]; !member {
			continue
		}
		out[row.UserID].UnreadCount += row.UnreadCount
	}
	return out
}

// ComputeUserStats 用户级汇总，四个字段来自同一份快照，一次性整体写回。
func ComputeUserStats(tenantID, userID string, rows []*model.UserDialogStats, totalMessages int64) *model.UserStats {
	out := &model.UserStats{
		TenantID:           tenantID,
		UserID:             userID,
		DialogCount:        int64(len(rows)),
		TotalMessagesCount: totalMessages,
	}
	for _, row := range rows {
		out.TotalUnreadCount += row.UnreadCount
		if row.UnreadCount > 0 {
			out.UnreadDialogsCount++
		}
	}
	return out
}
