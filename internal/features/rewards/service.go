// Package rewards — service.go содержит бизнес-логику леджера:
// валидация сумм, проверка каталога, сверка баланса.
package rewards

import (
	"context"

	log "github.com/sirupsen/logrus"

	"creddit.dev/creddit/internal/common"
)

// store — транзакционные операции хранилища, нужные сервису.
// Выделен в интерфейс, чтобы инварианты леджера проверялись тестами
// на изолированном in-memory хранилище.
type store interface {
	GetReward(ctx context.Context, rewardID int64) (*Reward, error)
	ListActiveRewards(ctx context.Context) ([]*Reward, error)
	CreateReward(ctx context.Context, name, description string, creditCost int64, rewardType string) (*Reward, error)
	DeactivateReward(ctx context.Context, rewardID int64) error
	Convert(ctx context.Context, agentID, karmaAmount, credits int64) (*ConversionResult, error)
	Redeem(ctx context.Context, agentID, rewardID, creditCost int64) (*RedemptionResult, error)
	Fulfill(ctx context.Context, redemptionID int64) error
	Refund(ctx context.Context, redemptionID int64) (*Redemption, error)
	GetCreditBalance(ctx context.Context, agentID int64) (*CreditBalance, error)
	ReconcileCredits(ctx context.Context, agentID int64) (previous, recomputed int64, err error)
	ListTransactions(ctx context.Context, agentID int64, limit int) ([]*Transaction, error)
	ListRedemptions(ctx context.Context, agentID int64, limit int) ([]*Redemption, error)
}

// Service — леджер кредитов.
type Service struct {
	repo store
}

// NewService создаёт сервис леджера.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// newService — конструктор для тестов с подменённым хранилищем.
func newService(repo store) *Service {
	return &Service{repo: repo}
}

// ConvertKarmaToCredits конвертирует карму в кредиты по фиксированному курсу.
//
// Предусловия:
//   - karmaAmount положительна, кратна ExchangeRate и не меньше его
//     (иначе common.ErrInvalidAmount)
//   - кармы на балансе хватает (иначе common.ErrInsufficientKarma)
//
// creditsEarned = floor(karmaAmount / ExchangeRate). При кратной сумме floor
// точен; деление оставлено целочисленным, чтобы формула пережила возможное
// ослабление требования кратности.
func (s *Service) ConvertKarmaToCredits(ctx context.Context, agentID, karmaAmount int64) (*ConversionResult, error) {
	if karmaAmount < ExchangeRate || karmaAmount%ExchangeRate != 0 {
		return nil, common.ErrInvalidAmount
	}
	credits := karmaAmount / ExchangeRate

	result, err := s.repo.Convert(ctx, agentID, karmaAmount, credits)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"agent_id":       agentID,
		"karma_spent":    karmaAmount,
		"credits_earned": credits,
	}).Info("Карма конвертирована в кредиты")

	return result, nil
}

// RedeemReward покупает награду за кредиты.
//
// Предусловия:
//   - награда существует (common.ErrRewardNotFound) и активна
//     (common.ErrRewardInactive)
//   - кредитов на балансе хватает (common.ErrInsufficientCredits)
//
// Покупка создаётся в статусе pending; выдача и возврат — отдельные операции.
func (s *Service) RedeemReward(ctx context.Context, agentID, rewardID int64) (*RedemptionResult, error) {
	reward, err := s.repo.GetReward(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if !reward.Active {
		return nil, common.ErrRewardInactive
	}

	result, err := s.repo.Redeem(ctx, agentID, rewardID, reward.CreditCost)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"agent_id":      agentID,
		"reward_id":     rewardID,
		"credits_spent": reward.CreditCost,
		"redemption_id": result.RedemptionID,
	}).Info("Награда куплена")

	return result, nil
}

// FulfillRedemption подтверждает выдачу награды (pending → fulfilled).
// Статус терминальный: выданную покупку нельзя ни вернуть, ни выдать повторно.
func (s *Service) FulfillRedemption(ctx context.Context, redemptionID int64) error {
	if err := s.repo.Fulfill(ctx, redemptionID); err != nil {
		return err
	}
	log.WithField("redemption_id", redemptionID).Info("Награда выдана")
	return nil
}

// RefundRedemption возвращает кредиты за несостоявшуюся покупку
// (pending → failed). Возврат по выданной покупке запрещён
// (common.ErrAlreadyFulfilled), повторный возврат — тоже
// (common.ErrAlreadyRefunded).
func (s *Service) RefundRedemption(ctx context.Context, redemptionID int64) (*Redemption, error) {
	red, err := s.repo.Refund(ctx, redemptionID)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"redemption_id":    redemptionID,
		"credits_refunded": red.CreditsSpent,
	}).Info("Покупка возвращена")

	return red, nil
}

// GetCreditBalance возвращает кэшированный баланс и агрегаты из истории.
func (s *Service) GetCreditBalance(ctx context.Context, agentID int64) (*CreditBalance, error) {
	return s.repo.GetCreditBalance(ctx, agentID)
}

// ReconcileCreditBalance перезаписывает кэш кредитов значением, пересчитанным
// из истории. Идемпотентна: повторный вызов без новых операций возвращает
// то же число.
func (s *Service) ReconcileCreditBalance(ctx context.Context, agentID int64) (int64, error) {
	previous, recomputed, err := s.repo.ReconcileCredits(ctx, agentID)
	if err != nil {
		return 0, err
	}

	if previous != recomputed {
		log.WithFields(log.Fields{
			"agent_id": agentID,
			"was":      previous,
			"now":      recomputed,
		}).Warn("Сверка кредитов исправила дрейф")
	}
	return recomputed, nil
}

// ListActiveRewards возвращает каталог доступных наград.
func (s *Service) ListActiveRewards(ctx context.Context) ([]*Reward, error) {
	return s.repo.ListActiveRewards(ctx)
}

// GetReward возвращает позицию каталога.
func (s *Service) GetReward(ctx context.Context, rewardID int64) (*Reward, error) {
	return s.repo.GetReward(ctx, rewardID)
}

// CreateReward добавляет позицию в каталог (админская операция).
func (s *Service) CreateReward(ctx context.Context, name, description string, creditCost int64, rewardType string) (*Reward, error) {
	if name == "" || creditCost <= 0 {
		return nil, common.ErrInvalidAmount
	}
	return s.repo.CreateReward(ctx, name, description, creditCost, rewardType)
}

// DeactivateReward снимает награду с публикации (админская операция).
func (s *Service) DeactivateReward(ctx context.Context, rewardID int64) error {
	return s.repo.DeactivateReward(ctx, rewardID)
}

// ListTransactions возвращает историю конвертаций агента.
func (s *Service) ListTransactions(ctx context.Context, agentID int64, limit int) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, agentID, common.ClampLimit(limit, 25, 100))
}

// ListRedemptions возвращает историю покупок агента.
func (s *Service) ListRedemptions(ctx context.Context, agentID int64, limit int) ([]*Redemption, error) {
	return s.repo.ListRedemptions(ctx, agentID, common.ClampLimit(limit, 25, 100))
}
