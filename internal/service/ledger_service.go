package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"assetledger/internal/catalog"
	"assetledger/internal/config"
	"assetledger/internal/infrastructure/cache"
	"assetledger/internal/metrics"
	"assetledger/internal/model"
	"assetledger/internal/repository"
	"assetledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type accountStore interface {
	Create(ctx context.Context, userID, assetTypeID int64) (*model.Account, error)
	Find(ctx context.Context, tx *gorm.DB, userID, assetTypeID int64) (*model.Account, error)
	FindByUserID(ctx context.Context, userID int64) ([]*model.Account, error)
	ApplyDelta(ctx context.Context, tx *gorm.DB, userID, assetTypeID int64, delta model.BalanceDelta) (*model.Account, error)
	IsActive(ctx context.Context, tx *gorm.DB, userID, assetTypeID int64) (bool, error)
}

type accountLogStore interface {
	Exists(ctx context.Context, tx *gorm.DB, accountID, actionTypeID int64, orderNumber string) (bool, error)
	Append(ctx context.Context, tx *gorm.DB, entry *model.AccountLog) error
}

type orderMarker interface {
	IsProcessed(ctx context.Context, accountID, actionTypeID int64, orderNumber string) (bool, error)
	MarkProcessed(ctx context.Context, keys []cache.OrderKey) error
}

// LedgerService 账户与账户操作
//
// 一批账户操作在一个数据库事务中全部成功或全部回滚。服务本身不持有任何锁，
// 同一账户的并发变更由数据库行锁串行化
type LedgerService struct {
	db          *gorm.DB
	catalog     *catalog.Catalog
	accounts    accountStore
	logs        accountLogStore
	outboxRepo  *repository.OutboxRepository
	marker      orderMarker
	metrics     *metrics.Collector
	outboxTopic string
}

func NewLedgerService(db *gorm.DB, rdb *redis.Client, cat *catalog.Catalog, cfg *config.Config, collector *metrics.Collector) *LedgerService {
	s := &LedgerService{
		db:         db,
		catalog:    cat,
		accounts:   repository.NewAccountRepository(db),
		logs:       repository.NewAccountLogRepository(db),
		outboxRepo: repository.NewOutboxRepository(db),
		metrics:    collector,
	}
	if rdb != nil {
		s.marker = cache.NewOrderMarker(rdb, cfg.Redis.MarkerTTL)
	}
	if cfg.Kafka.Enabled {
		s.outboxTopic = cfg.Kafka.Topic.AccountAction
	}
	return s
}

// ActionRequest 单个账户操作
type ActionRequest struct {
	UserID       int64
	AssetTypeID  int64
	ActionTypeID int64
	Amount       decimal.Decimal
	OrderNumber  string
	Description  string
}

// BatchResult 已提交批次的批次号与写入的操作日志
type BatchResult struct {
	BatchNo string              `json:"batch_no"`
	Logs    []*model.AccountLog `json:"logs"`
}

// CreateAccount 创建资产账户
func (s *LedgerService) CreateAccount(ctx context.Context, userID, assetTypeID int64) (*model.Account, error) {
	if !s.catalog.IsAssetTypeActive(assetTypeID) {
		return nil, newError(KindNotFound, fmt.Sprintf("资产类型不存在: %d", assetTypeID))
	}

	existing, err := s.accounts.Find(ctx, nil, userID, assetTypeID)
	if err != nil {
		return nil, internalError("查询账户失败", err)
	}
	if existing != nil {
		return nil, newError(KindConflict, "账户已存在")
	}

	account, err := s.accounts.Create(ctx, userID, assetTypeID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountExists) {
			return nil, newError(KindConflict, "账户已存在")
		}
		return nil, internalError("创建账户失败", err)
	}

	s.metrics.RecordAccountCreated()
	log.Printf("[LedgerService] 账户创建成功: accountID=%d, userID=%d, assetTypeID=%d", account.ID, userID, assetTypeID)
	return account, nil
}

// AccountInfo 查询单个资产账户
func (s *LedgerService) AccountInfo(ctx context.Context, userID, assetTypeID int64) (*model.Account, error) {
	if !s.catalog.IsAssetTypeActive(assetTypeID) {
		return nil, newError(KindNotFound, fmt.Sprintf("资产类型不存在: %d", assetTypeID))
	}

	account, err := s.accounts.Find(ctx, nil, userID, assetTypeID)
	if err != nil {
		return nil, internalError("查询账户失败", err)
	}
	if account == nil {
		return nil, newError(KindNotFound, "账户不存在")
	}
	return account, nil
}

// AccountInfos 查询用户的全部资产账户，没有账户时返回空列表
func (s *LedgerService) AccountInfos(ctx context.Context, userID int64) ([]*model.Account, error) {
	accounts, err := s.accounts.FindByUserID(ctx, userID)
	if err != nil {
		return nil, internalError("查询账户失败", err)
	}
	return accounts, nil
}

type actionPlan struct {
	req        ActionRequest
	actionType model.ActionType
	amount     decimal.Decimal
}

// ApplyActions 按顺序执行一批账户操作
//
// 开启事务前先逐个检查操作类型、账户状态、余额与订单号，提前拒绝明显无效的批次。
// 这一步只是建议性的，账户状态在检查之后仍可能变化。
//
// 随后在一个事务内逐个重新校验账户状态、相对更新余额、校验扣减后的余额并写入操作日志，
// 任何一步失败都回滚整个批次。
func (s *LedgerService) ApplyActions(ctx context.Context, reqs []ActionRequest) (result *BatchResult, err error) {
	start := time.Now()
	defer func() {
		label := "ok"
		if err != nil {
			label = KindOf(err).String()
		}
		s.metrics.RecordBatch(label, time.Since(start))
	}()

	if len(reqs) == 0 {
		return nil, newError(KindValidation, "操作列表不能为空")
	}

	plans, err := s.precheck(ctx, reqs)
	if err != nil {
		return nil, err
	}

	batchNo := idgen.GenerateBatchNo()
	logs := make([]*model.AccountLog, 0, len(plans))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range plans {
			entry, err := s.apply(ctx, tx, batchNo, p)
			if err != nil {
				return err
			}
			logs = append(logs, entry)
		}
		return s.writeOutbox(ctx, tx, batchNo, logs)
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			log.Printf("[LedgerService] 批次回滚: batchNo=%s, err=%v", batchNo, err)
			return nil, err
		}
		log.Printf("[LedgerService] 批次提交失败: batchNo=%s, err=%v", batchNo, err)
		return nil, internalError("账户操作失败", err)
	}

	s.markProcessed(ctx, logs)
	for _, p := range plans {
		s.metrics.RecordActionApplied(p.actionType.Name)
	}

	log.Printf("[LedgerService] 批次提交成功: batchNo=%s, actions=%d", batchNo, len(logs))
	return &BatchResult{BatchNo: batchNo, Logs: logs}, nil
}

func (s *LedgerService) precheck(ctx context.Context, reqs []ActionRequest) ([]actionPlan, error) {
	plans := make([]actionPlan, 0, len(reqs))
	seen := make(map[cache.OrderKey]struct{}, len(reqs))

	for _, req := range reqs {
		actionType, ok := s.catalog.ActionType(req.ActionTypeID)
		if !ok {
			return nil, newError(KindNotFound, fmt.Sprintf("操作类型不存在: %d", req.ActionTypeID))
		}

		account, err := s.accounts.Find(ctx, nil, req.UserID, req.AssetTypeID)
		if err != nil {
			return nil, internalError("查询账户失败", err)
		}
		if account == nil {
			return nil, newError(KindNotFound, "账户不存在")
		}
		if !account.IsActive {
			return nil, newError(KindForbidden, "账户未启用")
		}

		amount := req.Amount.Abs().Truncate(model.AmountScale)
		if actionType.Shortfall(account, amount) {
			return nil, newError(KindInsufficientBalance, "账户余额不足")
		}

		key := cache.OrderKey{AccountID: account.ID, ActionTypeID: actionType.ID, OrderNumber: req.OrderNumber}
		if _, dup := seen[key]; dup {
			return nil, newError(KindConflict, "同一批次内订单号重复")
		}
		seen[key] = struct{}{}

		processed, err := s.isProcessed(ctx, key)
		if err != nil {
			return nil, internalError("查询操作日志失败", err)
		}
		if processed {
			return nil, newError(KindConflict, "该订单号已处理")
		}

		plans = append(plans, actionPlan{req: req, actionType: actionType, amount: amount})
	}
	return plans, nil
}

// isProcessed Redis 标记命中即可判定已处理，未命中或 Redis 不可用时查询数据库
func (s *LedgerService) isProcessed(ctx context.Context, key cache.OrderKey) (bool, error) {
	if s.marker != nil {
		hit, err := s.marker.IsProcessed(ctx, key.AccountID, key.ActionTypeID, key.OrderNumber)
		if err != nil {
			log.Printf("[LedgerService] 查询 Redis 订单标记失败: %v", err)
		} else if hit {
			return true, nil
		}
	}
	return s.logs.Exists(ctx, nil, key.AccountID, key.ActionTypeID, key.OrderNumber)
}

func (s *LedgerService) apply(ctx context.Context, tx *gorm.DB, batchNo string, p actionPlan) (*model.AccountLog, error) {
	// 预检查到事务开始之间账户可能已被停用，事务内重新校验
	active, err := s.accounts.IsActive(ctx, tx, p.req.UserID, p.req.AssetTypeID)
	if err != nil {
		return nil, internalError("查询账户状态失败", err)
	}
	if !active {
		return nil, newError(KindForbidden, "账户未启用")
	}

	delta := p.actionType.Delta(p.amount)
	account, err := s.accounts.ApplyDelta(ctx, tx, p.req.UserID, p.req.AssetTypeID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, newError(KindNotFound, "账户不存在")
		}
		return nil, internalError("更新账户余额失败", err)
	}

	// 扣减可用余额或冻结余额时，更新后的值不允许为负数；增加时不做校验，
	// 管理员可能直接修改数据库中的余额
	if p.actionType.Shortfall(account, decimal.Zero) {
		return nil, newError(KindInsufficientBalance, "账户余额不足")
	}

	entry := model.NewAccountLog(account, p.actionType.ID, delta, batchNo, p.req.OrderNumber, p.req.Description)
	if err := s.logs.Append(ctx, tx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) {
			return nil, newError(KindConflict, "该订单号已处理")
		}
		return nil, internalError("写入操作日志失败", err)
	}
	return entry, nil
}

type actionEvent struct {
	BatchNo string              `json:"batch_no"`
	Logs    []*model.AccountLog `json:"logs"`
}

// writeOutbox 启用 Kafka 时在同一事务内写入批次事件
func (s *LedgerService) writeOutbox(ctx context.Context, tx *gorm.DB, batchNo string, logs []*model.AccountLog) error {
	if s.outboxTopic == "" {
		return nil
	}

	payload, err := json.Marshal(actionEvent{BatchNo: batchNo, Logs: logs})
	if err != nil {
		return internalError("序列化批次事件失败", err)
	}

	msg := &model.OutboxMessage{
		MessageKey: batchNo,
		Topic:      s.outboxTopic,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return internalError("写入消息失败", err)
	}
	return nil
}

// markProcessed 提交成功后写入 Redis 标记，失败只记录日志
func (s *LedgerService) markProcessed(ctx context.Context, logs []*model.AccountLog) {
	if s.marker == nil {
		return
	}
	keys := make([]cache.OrderKey, 0, len(logs))
	for _, l := range logs {
		keys = append(keys, cache.OrderKey{AccountID: l.AccountID, ActionTypeID: l.ActionTypeID, OrderNumber: l.OrderNumber})
	}
	if err := s.marker.MarkProcessed(ctx, keys); err != nil {
		log.Printf("[LedgerService] 写入 Redis 订单标记失败: %v", err)
	}
}
