package billing

import "github.com/shopspring/decimal"

// 金額は小数2桁の文字列で返す
type BillResponse struct {
	ID                   uint64 `json:"id"`
	ULID                 string `json:"bill_ulid"`
	Student              uint64 `json:"student"`
	StudentRegNum        string `json:"student_reg_num"`
	StudentName          string `json:"student_name"`
	Month                string `json:"month"`
	Amount               string `json:"amount"`
	IsPaid               bool   `json:"is_paid"`
	GeneratedDate        string `json:"generated_date"`
	DailyRate            string `json:"daily_rate"`
	NVPlateRate          string `json:"nv_plate_rate"`
	RoomRent             string `json:"room_rent"`
	WaterCharges         string `json:"water_charges"`
	ElectricityCharges   string `json:"electricity_charges"`
	EstablishmentCharges string `json:"establishment_charges"`
}

// 数値・文字列どちらでも受ける（decimal の UnmarshalJSON）
type GenerateRequest struct {
	Month                string           `json:"month" binding:"required"`
	DailyRate            *decimal.Decimal `json:"daily_rate" binding:"required"`
	NVPlateRate          *decimal.Decimal `json:"nv_plate_rate" binding:"required"`
	RoomRent             *decimal.Decimal `json:"room_rent,omitempty"`
	WaterCharges         *decimal.Decimal `json:"water_charges,omitempty"`
	ElectricityCharges   *decimal.Decimal `json:"electricity_charges,omitempty"`
	EstablishmentCharges *decimal.Decimal `json:"establishment_charges,omitempty"`
}

type GenerateResult struct {
	Message string `json:"message"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
}

type PatchRequest struct {
	IsPaid *bool `json:"is_paid" binding:"required"`
}
