package service

import (
	"context"
	"errors"
	"math"
	"time"

	"fintrack/database"
	"fintrack/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrGoalNotFound 目标不存在或不属于该用户
	ErrGoalNotFound = errors.New("目标不存在")
	// ErrGoalNotActive 目标已完成或已取消，不能再接受贡献
	ErrGoalNotActive = errors.New("目标不在进行中，无法贡献")
)

// 里程碑百分比，从低到高
var milestones = []int{25, 50, 75, 100}

// GoalService 储蓄目标与贡献流水
type GoalService struct{}

// NewGoalService 创建目标服务
func NewGoalService() *GoalService {
	return &GoalService{}
}

// ContributeResult 单次贡献的结果
type ContributeResult struct {
	Goal         models.Goal             `json:"goal"`
	Contribution models.GoalContribution `json:"contribution"`
	Milestone    string                  `json:"milestone,omitempty"` // 如 "50%" / "goal_completed"
	Completed    bool                    `json:"completed"`
}

// Contribute 向目标追加一笔贡献。
// 整个过程在一个数据库事务内完成：锁定目标行、写入流水、更新余额，
// 三步要么全部生效要么全部回滚，余额与流水不会脱节
func (s *GoalService) Contribute(ctx context.Context, userID, goalID uint, amount float64, source string, transactionID *uint, notes string) (*ContributeResult, error) {
	if !models.ValidSource(source) {
		source = models.SourceManual
	}
	amount = round2(amount)

	var result ContributeResult
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var goal models.Goal
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", goalID, userID).
			First(&goal).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrGoalNotFound
			}
			return err
		}
		if goal.Status != models.GoalActive {
			return ErrGoalNotActive
		}

		contribution := models.GoalContribution{
			GoalID:        goal.ID,
			Amount:        amount,
			Source:        source,
			TransactionID: transactionID,
			Notes:         notes,
		}
		if err := tx.Create(&contribution).Error; err != nil {
			return err
		}

		prev := goal.CurrentAmount
		goal.CurrentAmount = round2(prev + amount)

		updates := map[string]interface{}{
			"current_amount": goal.CurrentAmount,
		}
		if goal.CurrentAmount >= goal.TargetAmount {
			goal.Status = models.GoalCompleted
			updates["status"] = models.GoalCompleted
		}
		if err := tx.Model(&models.Goal{}).Where("id = ?", goal.ID).Updates(updates).Error; err != nil {
			return err
		}

		result = ContributeResult{
			Goal:         goal,
			Contribution: contribution,
			Milestone:    CheckMilestone(prev, goal.CurrentAmount, goal.TargetAmount),
			Completed:    goal.Status == models.GoalCompleted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckMilestone 判断这次余额变动是否首次跨过某个里程碑。
// 从低到高找第一个被跨过的边界；跨过 100% 返回 goal_completed
func CheckMilestone(prevAmount, newAmount, targetAmount float64) string {
	if targetAmount <= 0 {
		return ""
	}
	prevPct := prevAmount / targetAmount * 100
	newPct := newAmount / targetAmount * 100
	for _, m := range milestones {
		if prevPct < float64(m) && newPct >= float64(m) {
			if m == 100 {
				return "goal_completed"
			}
			return fmtPercent(m)
		}
	}
	return ""
}

func fmtPercent(m int) string {
	switch m {
	case 25:
		return "25%"
	case 50:
		return "50%"
	case 75:
		return "75%"
	}
	return ""
}

// RoundUpAmount 凑整贡献额：把支出向上凑到最近的 10 元，差额即贡献。
// 正好整十时返回 0（不产生贡献）
func RoundUpAmount(expense float64) float64 {
	if expense <= 0 {
		return 0
	}
	return round2(math.Ceil(expense/10)*10 - expense)
}

// ProcessAutoRound 支出入账后的自动凑整。
// 贡献给优先级最高的进行中且开启凑整的目标；同优先级取截止日期早的，
// 再相同取先创建的。没有符合条件的目标或差额为 0 时返回 (nil, nil)
func (s *GoalService) ProcessAutoRound(ctx context.Context, userID uint, expense float64, transactionID *uint) (*ContributeResult, error) {
	amount := RoundUpAmount(expense)
	if amount <= 0 {
		return nil, nil
	}

	var goal models.Goal
	err := database.DB.WithContext(ctx).
		Where("user_id = ? AND status = ? AND auto_round_enabled = ?", userID, models.GoalActive, true).
		Order("FIELD(priority, 'high', 'medium', 'low'), deadline IS NULL, deadline, id").
		First(&goal).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	return s.Contribute(ctx, userID, goal.ID, amount, models.SourceAutoRound, transactionID, "消费凑整")
}

// GoalProgress 目标进度
type GoalProgress struct {
	Goal          models.Goal `json:"goal"`
	PercentDone   float64     `json:"percent_done"`
	Remaining     float64     `json:"remaining"`
	DaysLeft      *int        `json:"days_left,omitempty"`
	OnTrack       *bool       `json:"on_track,omitempty"`
	RequiredDaily *float64    `json:"required_daily,omitempty"`
}

// ComputeProgress 计算目标进度。
// 有截止日期时按创建日到截止日的线性基准判断是否落后
func ComputeProgress(goal models.Goal, now time.Time) GoalProgress {
	p := GoalProgress{
		Goal:      goal,
		Remaining: round2(goal.TargetAmount - goal.CurrentAmount),
	}
	if p.Remaining < 0 {
		p.Remaining = 0
	}
	if goal.TargetAmount > 0 {
		p.PercentDone = round2(goal.CurrentAmount / goal.TargetAmount * 100)
	}

	if goal.Deadline == nil || goal.Status != models.GoalActive {
		return p
	}

	daysLeft := int(math.Ceil(goal.Deadline.Sub(now).Hours() / 24))
	if daysLeft < 0 {
		daysLeft = 0
	}
	p.DaysLeft = &daysLeft

	totalDays := goal.Deadline.Sub(goal.CreatedAt).Hours() / 24
	if totalDays > 0 {
		elapsed := now.Sub(goal.CreatedAt).Hours() / 24
		expected := goal.TargetAmount * math.Min(elapsed/totalDays, 1)
		onTrack := goal.CurrentAmount >= expected
		p.OnTrack = &onTrack
	}
	if daysLeft > 0 && p.Remaining > 0 {
		daily := round2(p.Remaining / float64(daysLeft))
		p.RequiredDaily = &daily
	}
	return p
}

// ReconcileResult 余额对账结果
type ReconcileResult struct {
	GoalID        uint    `json:"goal_id"`
	CurrentAmount float64 `json:"current_amount"`
	LedgerAmount  float64 `json:"ledger_amount"` // seed + SUM(contributions)
	Consistent    bool    `json:"consistent"`
	Drift         float64 `json:"drift"`
}

// Reconcile 校验目标余额与贡献流水是否一致。
// 浮点两位小数内的误差视为一致
func (s *GoalService) Reconcile(ctx context.Context, userID, goalID uint) (*ReconcileResult, error) {
	db := database.DB.WithContext(ctx)

	var goal models.Goal
	err := db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}

	var contributed float64
	err = db.Model(&models.GoalContribution{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("goal_id = ?", goalID).
		Scan(&contributed).Error
	if err != nil {
		return nil, err
	}

	ledger := round2(goal.SeedAmount + contributed)
	drift := round2(goal.CurrentAmount - ledger)
	return &ReconcileResult{
		GoalID:        goal.ID,
		CurrentAmount: goal.CurrentAmount,
		LedgerAmount:  ledger,
		Consistent:    math.Abs(drift) < 0.005,
		Drift:         drift,
	}, nil
}
