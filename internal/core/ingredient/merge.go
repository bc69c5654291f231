package ingredient

import (
	"grocery-tracker/internal/pkg/common"
)

// FindMergeTarget 在既有列中找出第一個單位可換算的列
//
// 有找到時，新數量換算成該列單位後相加，單位沿用該列；
// 沒找到時 TargetID 為 nil，呼叫端應新增一列。
// 掃描順序即 existing 的順序，呼叫端負責提供穩定排序。
func FindMergeTarget(existing []common.MergeCandidate, incomingQuantity float64, incomingUnit string) common.MergeResult {
	for _, row := range existing {
		converted, ok := Convert(incomingQuantity, incomingUnit, row.Unit)
		if !ok {
			continue
		}
		id := row.ID
		return common.MergeResult{
			TargetID:                  &id,
			MergedQuantity:            Round(row.Quantity + converted),
			MergedUnit:                NormalizeUnit(row.Unit),
			ConvertedIncomingQuantity: Round(converted),
		}
	}

	return common.MergeResult{
		TargetID:                  nil,
		MergedQuantity:            Round(incomingQuantity),
		MergedUnit:                NormalizeUnit(incomingUnit),
		ConvertedIncomingQuantity: Round(incomingQuantity),
	}
}
