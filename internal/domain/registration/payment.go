package registration

import "fmt"

// PaymentStatus は支払い状態を表す
type PaymentStatus string

const (
	PaymentNotRequired     PaymentStatus = "not_required"
	PaymentPendingProof    PaymentStatus = "pending_proof"
	PaymentPendingApproval PaymentStatus = "pending_approval"
	PaymentApproved        PaymentStatus = "approved"
	PaymentRejected        PaymentStatus = "rejected"
)

// paymentTransitions は支払い状態の遷移表。rejected からは証憑の再提出のみ
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPendingProof:    {PaymentPendingApproval},
	PaymentPendingApproval: {PaymentApproved, PaymentRejected},
	PaymentRejected:        {PaymentPendingApproval},
}

// PaymentStatusFor は合計金額から初期の支払い状態を決める
func PaymentStatusFor(total int) PaymentStatus {
	if total > 0 {
		return PaymentPendingProof
	}
	return PaymentNotRequired
}

// CanTransitionPayment は支払い状態の遷移が許可されているかを検証する
func CanTransitionPayment(from, to PaymentStatus) error {
	for _, s := range paymentTransitions[from] {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot change from '%s' to '%s'", ErrInvalidPaymentState, from, to)
}

// IsSettled は参加確定に支払いが不要または承認済みかを返す
func (p PaymentStatus) IsSettled() bool {
	return p == PaymentNotRequired || p == PaymentApproved
}

// Decision は主催者による支払い判定
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Target は判定に対応する遷移先
func (d Decision) Target() (PaymentStatus, bool) {
	switch d {
	case DecisionApprove:
		return PaymentApproved, true
	case DecisionReject:
		return PaymentRejected, true
	}
	return "", false
}
