package common

const (
	// RedisStreamSignalSettled receives one event per resolved signal.
	RedisStreamSignalSettled = "signal.settled"

	// RedisKeySettlementLock guards the settlement pass against a second
	// running instance.
	RedisKeySettlementLock = "lock:settlement-pass"
	// RedisKeyAutoModeLock guards the auto-mode pass the same way.
	RedisKeyAutoModeLock = "lock:auto-mode-pass"
)

// Audit transaction type tags. Every balance mutation writes exactly one
// transaction row carrying one of these.
const (
	TxTypeDeposit       = "deposit"
	TxTypeWithdraw      = "withdraw"
	TxTypeFreeze        = "freeze"
	TxTypeUnfreeze      = "unfreeze"
	TxTypeTradeTransfer = "trade_transfer"
	TxTypeSettlement    = "settlement"
	TxTypeReferralBonus = "referral_bonus"
	TxTypeSignalJoin    = "signal_join"
	TxTypeAutoJoin      = "auto_join"
)

// Signal name prefixes used by the lifecycle manager.
const (
	StaticSignalPrefix = "Static Signal"
	AutoSignalName     = "Auto Signal"
)
