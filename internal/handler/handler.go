package handler

import (
	"errors"
	"fmt"
	"log"

	"assetledger/internal/catalog"
	"assetledger/internal/service"
	"assetledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
)

// Handler 账本接口
type Handler struct {
	ledger  *service.LedgerService
	catalog *catalog.Catalog
}

func NewHandler(ledger *service.LedgerService, cat *catalog.Catalog) *Handler {
	return &Handler{
		ledger:  ledger,
		catalog: cat,
	}
}

// ============================================================
// 目录接口
// ============================================================

// ListAssetTypes 启用的资产类型
// GET /api/v1/assets
func (h *Handler) ListAssetTypes(c *gin.Context) {
	response.Success(c, h.catalog.AssetTypes())
}

// ListActionTypes 启用的操作类型
// GET /api/v1/actions
func (h *Handler) ListActionTypes(c *gin.Context) {
	response.Success(c, h.catalog.ActionTypes())
}

// ============================================================
// 账户接口
// ============================================================

// AccountRequest 按用户与资产类型定位账户
type AccountRequest struct {
	UserID      int64 `json:"user_id" binding:"required,min=1"`
	AssetTypeID int64 `json:"asset_type_id" binding:"required,min=1"`
}

// CreateAccount 创建资产账户
// POST /api/v1/accounts/new
func (h *Handler) CreateAccount(c *gin.Context) {
	var req AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	account, err := h.ledger.CreateAccount(c.Request.Context(), req.UserID, req.AssetTypeID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, account)
}

// AccountInfo 查询资产账户
// POST /api/v1/accounts/info
func (h *Handler) AccountInfo(c *gin.Context) {
	var req AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	account, err := h.ledger.AccountInfo(c.Request.Context(), req.UserID, req.AssetTypeID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, account)
}

// UserRequest 按用户查询
type UserRequest struct {
	UserID int64 `json:"user_id" binding:"required,min=1"`
}

// AccountInfos 查询用户的全部资产账户
// POST /api/v1/accounts/infos
func (h *Handler) AccountInfos(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	accounts, err := h.ledger.AccountInfos(c.Request.Context(), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, accounts)
}

// ============================================================
// 账户操作接口
// ============================================================

// ActionRequest 单个账户操作
// amount 以 JSON 数字或字符串传入，按十进制文本解析，不经过浮点数
type ActionRequest struct {
	UserID       int64           `json:"user_id" binding:"required,min=1"`
	AssetTypeID  int64           `json:"asset_type_id" binding:"required,min=1"`
	ActionTypeID int64           `json:"action_type_id" binding:"required,min=1"`
	Amount       decimal.Decimal `json:"amount" binding:"required,decimal6"`
	OrderNumber  string          `json:"order_number" binding:"required,min=32,max=128"`
	Description  string          `json:"description" binding:"required"`
}

// ApplyActions 批量执行账户操作，整批成功或整批失败
// POST /api/v1/accounts/actions
func (h *Handler) ApplyActions(c *gin.Context) {
	var reqs []ActionRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if len(reqs) == 0 {
		response.ParamError(c, "操作列表不能为空")
		return
	}

	actions := make([]service.ActionRequest, 0, len(reqs))
	for i := range reqs {
		req := &reqs[i]
		if err := binding.Validator.ValidateStruct(req); err != nil {
			response.ParamError(c, fmt.Sprintf("参数错误: 第 %d 项: %v", i+1, err))
			return
		}
		if msg := h.checkCapability(req); msg != "" {
			response.ParamError(c, fmt.Sprintf("参数错误: 第 %d 项: %s", i+1, msg))
			return
		}
		actions = append(actions, service.ActionRequest{
			UserID:       req.UserID,
			AssetTypeID:  req.AssetTypeID,
			ActionTypeID: req.ActionTypeID,
			Amount:       req.Amount,
			OrderNumber:  req.OrderNumber,
			Description:  req.Description,
		})
	}

	result, err := h.ledger.ApplyActions(c.Request.Context(), actions)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// checkCapability 资产类型与操作类型必须存在且已启用
func (h *Handler) checkCapability(req *ActionRequest) string {
	if !h.catalog.IsAssetTypeActive(req.AssetTypeID) {
		return fmt.Sprintf("资产类型不存在或未启用: %d", req.AssetTypeID)
	}
	if !h.catalog.IsActionTypeActive(req.ActionTypeID) {
		return fmt.Sprintf("操作类型不存在或未启用: %d", req.ActionTypeID)
	}
	return ""
}

// writeError 按错误类别写入对应的状态码，内部错误不向调用方暴露细节
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.ParamError(c, messageOf(err, service.ErrValidation))
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, messageOf(err, service.ErrNotFound))
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, messageOf(err, service.ErrForbidden))
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, messageOf(err, service.ErrConflict))
	case errors.Is(err, service.ErrInsufficientBalance):
		response.InsufficientBalance(c, messageOf(err, service.ErrInsufficientBalance))
	default:
		log.Printf("[HTTP] %s %s 失败: %v", c.Request.Method, c.Request.URL.Path, err)
		response.ServerError(c, service.ErrInternal.Message)
	}
}

func messageOf(err error, fallback *service.Error) string {
	var e *service.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback.Message
}
