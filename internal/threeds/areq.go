package threeds

import (
	"strconv"
)

// BuildAuthenticationRequest reconstructs the AReq the ACS would have received
// from the directory server, echoed back in the authenticate response for
// integration debugging. Browser information and the SDK ephemeral key are
// only present when the inbound request carried them.
func BuildAuthenticationRequest(req *AuthenticateRequest) map[string]any {
	areq := map[string]any{
		"messageType":                       "AReq",
		"messageVersion":                    MessageVersion,
		"messageCategory":                   req.MessageCategory,
		"deviceChannel":                     req.DeviceChannel,
		"threeDSServerTransID":              req.ThreeDSServerTransID,
		"threeDSServerRefNumber":            threeDSServerRefNumber,
		"threeDSServerOperatorID":           threeDSServerOperatorID,
		"threeDSServerURL":                  threeDSServerURL,
		"threeDSCompInd":                    req.ThreeDSCompInd,
		"threeDSRequestorAuthenticationInd": req.ThreeDSRequestor.ThreeDSRequestorAuthenticationInd,
		"threeDSRequestorChallengeInd":      req.ThreeDSRequestor.ThreeDSRequestorChallengeInd,
		"threeDSRequestorAuthenticationInfo": map[string]any{
			"threeDSReqAuthMethod":    req.ThreeDSRequestor.ThreeDSRequestorAuthenticationInfo.ThreeDSReqAuthMethod,
			"threeDSReqAuthTimestamp": req.ThreeDSRequestor.ThreeDSRequestorAuthenticationInfo.ThreeDSReqAuthTimestamp,
		},
		"threeDSRequestorID":   req.Merchant.ThreeDSRequestorID,
		"threeDSRequestorName": req.Merchant.ThreeDSRequestorName,
		"threeDSRequestorURL":  req.Merchant.NotificationURL,
		"notificationURL":      req.Merchant.NotificationURL,
		"merchantName":         req.Merchant.MerchantName,
		"merchantCountryCode":  req.Merchant.MerchantCountryCode,
		"mcc":                  req.Merchant.MCC,
		"acquirerBIN":          req.Acquirer.AcquirerBIN,
		"acquirerMerchantID":   req.Acquirer.AcquirerMerchantID,
		"acctType":             req.CardholderAccount.AcctType,
		"acctNumber":           req.CardholderAccount.AcctNumber,
		"cardExpiryDate":       req.CardholderAccount.CardExpiryDate,
		"cardSecurityCode":     req.CardholderAccount.CardSecurityCode,
		"cardholderName":       req.Cardholder.CardholderName,
		"email":                req.Cardholder.Email,
		"addrMatch":            req.Cardholder.AddrMatch,
		"billAddrCity":         req.Cardholder.BillAddrCity,
		"billAddrCountry":      req.Cardholder.BillAddrCountry,
		"billAddrLine1":        req.Cardholder.BillAddrLine1,
		"billAddrLine2":        req.Cardholder.BillAddrLine2,
		"billAddrLine3":        req.Cardholder.BillAddrLine3,
		"billAddrPostCode":     req.Cardholder.BillAddrPostCode,
		"shipAddrCity":         req.Cardholder.ShipAddrCity,
		"shipAddrCountry":      req.Cardholder.ShipAddrCountry,
		"shipAddrLine1":        req.Cardholder.ShipAddrLine1,
		"shipAddrLine2":        req.Cardholder.ShipAddrLine2,
		"shipAddrLine3":        req.Cardholder.ShipAddrLine3,
		"shipAddrPostCode":     req.Cardholder.ShipAddrPostCode,
		"homePhone": map[string]any{
			"cc":         req.Cardholder.HomePhone.CC,
			"subscriber": req.Cardholder.HomePhone.Subscriber,
		},
		"mobilePhone": map[string]any{
			"cc":         req.Cardholder.MobilePhone.CC,
			"subscriber": req.Cardholder.MobilePhone.Subscriber,
		},
		"workPhone": map[string]any{
			"cc":         req.Cardholder.WorkPhone.CC,
			"subscriber": req.Cardholder.WorkPhone.Subscriber,
		},
		"purchaseDate":       req.Purchase.PurchaseDate,
		"purchaseAmount":     strconv.FormatUint(req.Purchase.PurchaseAmount, 10),
		"purchaseCurrency":   req.Purchase.PurchaseCurrency,
		"purchaseExponent":   strconv.FormatUint(uint64(req.Purchase.PurchaseExponent), 10),
		"recurringExpiry":    req.Purchase.RecurringExpiry,
		"recurringFrequency": strconv.FormatUint(uint64(req.Purchase.RecurringFrequency), 10),
		"transType":          req.Purchase.TransType,
		"deviceRenderOptions": map[string]any{
			"sdkInterface": req.DeviceRenderOptions.SDKInterface,
			"sdkUiType":    req.DeviceRenderOptions.SDKUIType,
		},
	}

	if info := req.BrowserInformation; nil != info {
		areq["browserAcceptHeader"] = info.BrowserAcceptHeader
		areq["browserIP"] = info.BrowserIP
		areq["browserLanguage"] = info.BrowserLanguage
		areq["browserColorDepth"] = info.BrowserColorDepth
		areq["browserScreenHeight"] = strconv.FormatUint(uint64(info.BrowserScreenHeight), 10)
		areq["browserScreenWidth"] = strconv.FormatUint(uint64(info.BrowserScreenWidth), 10)
		areq["browserTZ"] = strconv.FormatUint(uint64(info.BrowserTZ), 10)
		areq["browserUserAgent"] = info.BrowserUserAgent
		areq["browserJavaEnabled"] = info.BrowserJavaEnabled
		areq["browserJavascriptEnabled"] = info.BrowserJavascriptEnabled
	}

	if jwk, present := req.SDKKey(); present {
		areq["sdkEphemeralPublicKey"] = map[string]any{
			"kty": jwk.Kty,
			"crv": jwk.Crv,
			"x":   jwk.X,
			"y":   jwk.Y,
		}
	}

	return areq
}
