package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ecshop/internal/usecase"

	"github.com/shopspring/decimal"
)

// 出荷元（倉庫）
const (
	FromDistrictID   = 1526
	FromWardCode     = "910347"
	fallbackService  = 53321
	leadtimeLayout   = "02/01/2006"
	parcelDimensionC = 10
)

// GHNClient は GHN の見積もりAPI（サービス一覧→料金→リードタイム）を呼ぶ。
// 通信エラーは error で返し、APIが200以外を返した項目だけ既定値で埋める。
type GHNClient struct {
	baseURL    string
	token      string
	shopID     string
	httpClient *http.Client
	loc        *time.Location
}

func NewGHNClient(baseURL, token, shopID string, timeout time.Duration) *GHNClient {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		loc = time.FixedZone("ICT", 7*60*60)
	}
	return &GHNClient{
		baseURL:    baseURL,
		token:      token,
		shopID:     shopID,
		httpClient: &http.Client{Timeout: timeout},
		loc:        loc,
	}
}

type ghnEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type ghnService struct {
	ServiceID int `json:"service_id"`
}

type ghnFee struct {
	Total int64 `json:"total"`
}

type ghnLeadtime struct {
	Leadtime int64 `json:"leadtime"`
}

func (c *GHNClient) Quote(ctx context.Context, req usecase.ShippingQuoteRequest) (usecase.ShippingQuote, error) {
	shopID, err := strconv.Atoi(c.shopID)
	if err != nil {
		return usecase.ShippingQuote{}, fmt.Errorf("ghn: invalid shop id %q: %w", c.shopID, err)
	}
	weight := req.WeightGrams
	if weight <= 0 {
		weight = 500
	}

	serviceID := fallbackService
	svc, err := c.post(ctx, "/v2/shipping-order/available-services", map[string]any{
		"shop_id":       shopID,
		"from_district": FromDistrictID,
		"to_district":   req.DistrictID,
	})
	if err != nil {
		return usecase.ShippingQuote{}, err
	}
	if svc.Code == http.StatusOK {
		var services []ghnService
		if json.Unmarshal(svc.Data, &services) == nil && len(services) > 0 {
			serviceID = services[0].ServiceID
		}
	}

	quote := usecase.DefaultShippingQuote()

	feeRes, err := c.post(ctx, "/v2/shipping-order/fee", map[string]any{
		"from_district_id": FromDistrictID,
		"from_ward_code":   FromWardCode,
		"service_id":       serviceID,
		"to_district_id":   req.DistrictID,
		"to_ward_code":     req.WardCode,
		"weight":           weight,
		"height":           parcelDimensionC,
		"length":           parcelDimensionC,
		"width":            parcelDimensionC,
		"insurance_value":  0,
	})
	if err != nil {
		return usecase.ShippingQuote{}, err
	}
	if feeRes.Code == http.StatusOK {
		var fee ghnFee
		if err := json.Unmarshal(feeRes.Data, &fee); err != nil {
			return usecase.ShippingQuote{}, fmt.Errorf("ghn: decode fee: %w", err)
		}
		quote.Fee = decimal.NewFromInt(fee.Total)
	}

	ltRes, err := c.post(ctx, "/v2/shipping-order/leadtime", map[string]any{
		"from_district_id": FromDistrictID,
		"from_ward_code":   FromWardCode,
		"to_district_id":   req.DistrictID,
		"to_ward_code":     req.WardCode,
		"service_id":       serviceID,
	})
	if err != nil {
		return usecase.ShippingQuote{}, err
	}
	if ltRes.Code == http.StatusOK {
		var lt ghnLeadtime
		if err := json.Unmarshal(ltRes.Data, &lt); err != nil {
			return usecase.ShippingQuote{}, fmt.Errorf("ghn: decode leadtime: %w", err)
		}
		expected := time.Unix(lt.Leadtime, 0).In(c.loc)
		deadline := expected.AddDate(0, 0, 1).Format(leadtimeLayout)
		quote.ExpectedDelivery = expected.Format(leadtimeLayout)
		quote.Deadline = &deadline
	}

	return quote, nil
}

func (c *GHNClient) post(ctx context.Context, path string, body any) (ghnEnvelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return ghnEnvelope{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return ghnEnvelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", c.token)
	req.Header.Set("ShopId", c.shopID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ghnEnvelope{}, fmt.Errorf("ghn %s: %w", path, err)
	}
	defer resp.Body.Close()

	var env ghnEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return ghnEnvelope{}, fmt.Errorf("ghn %s: decode (status %d): %w", path, resp.StatusCode, err)
	}
	return env, nil
}
