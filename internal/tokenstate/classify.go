package tokenstate

import "github.com/1Eliaaaan/rugfi-ft/internal/domain"

// Classify 根据创建者分析推导风险状态
// 分析缺失或 rugged 列表未知 => Pending；列表为空 => Safe；否则 Risky 并附带数量
// 纯函数，对任意输入都有定义
func Classify(a *domain.CreatorAnalysis) domain.RiskStatus {
	if a == nil || a.RuggedTokens == nil {
		return domain.RiskStatus{Level: domain.RiskPending}
	}
	if len(a.RuggedTokens) == 0 {
		return domain.RiskStatus{Level: domain.RiskSafe}
	}
	return domain.RiskStatus{Level: domain.RiskRisky, RuggedCount: len(a.RuggedTokens)}
}
