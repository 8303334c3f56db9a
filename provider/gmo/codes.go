package gmo

import "github.com/mstgnz/gmopay/provider"

const providerName = "gmo"

// ErrorCodes are the gateway error codes with a known meaning
var ErrorCodes = provider.ErrorCodeTable{
	"E01": "Invalid shop ID provided",
	"E02": "Invalid shop password provided",
	"E41": "Invalid card number provided",
	"E42": "The card has expired",
	"E44": "Security code is required but missing",
	"G12": "The card was rejected by the payment processor",
	"G30": "Transaction not found",
}

// REST endpoints
const (
	EndpointMemberCreate      = "member/create"
	EndpointMemberInquiry     = "member/inquiry"
	EndpointCardStore         = "credit/storeCard"
	EndpointCardVerify        = "credit/verifyCard"
	EndpointCardDetails       = "credit/getCardDetails"
	EndpointCharge            = "credit/charge"
	EndpointOrderCapture      = "order/capture"
	EndpointOrderCancel       = "order/cancel"
	EndpointOrderChangeAmount = "order/changeAmount"
	EndpointOrderInquiry      = "order/inquiry"
	EndpointTDS2Finalize      = "tds2/finalizeCharge"
)

// Legacy idPass endpoints
const (
	EndpointSaveMember        = "SaveMember.idPass"
	EndpointSearchMember      = "SearchMember.idPass"
	EndpointDeleteMember      = "DeleteMember.idPass"
	EndpointSearchCard        = "SearchCard.idPass"
	EndpointDeleteCard        = "DeleteCard.idPass"
	EndpointEntryTran         = "EntryTran.idPass"
	EndpointExecTran          = "ExecTran.idPass"
	EndpointAlterTran         = "AlterTran.idPass"
	EndpointExecTranGooglePay = "ExecTranGooglePay.idPass"
	EndpointExecTranApplePay  = "ExecTranApplePay.idPass"
)

// Job codes accepted by transaction operations
const (
	JobAuth    = "AUTH"
	JobSales   = "SALES"
	JobVoid    = "VOID"
	JobReturn  = "RETURN"
	JobSAuth   = "SAUTH"
	JobCapture = "CAPTURE"
)

// JobCodes lists every known job code
var JobCodes = []string{JobAuth, JobSales, JobVoid, JobReturn, JobSAuth, JobCapture}

// IsJobCode reports whether code is a known job code
func IsJobCode(code string) bool {
	for _, known := range JobCodes {
		if code == known {
			return true
		}
	}
	return false
}
