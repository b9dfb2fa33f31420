package entity

// Referral links a user to the inviter who referred them. ReferrerID is zero
// for users who joined without an invite.
type Referral struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	UserID       uint `gorm:"uniqueIndex;not null" json:"user_id"`
	ReferrerID   uint `gorm:"index" json:"referrer_id"`
	InvitedCount int  `gorm:"not null;default:0" json:"invited_count"`
}

func (Referral) TableName() string {
	return "referrals"
}
