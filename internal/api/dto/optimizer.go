package dto

type RunRequest struct {
	MaxPerVehicle int `json:"max_per_vehicle"`
}

type SuggestRequest struct {
	StoreIDs []string `json:"store_ids"`
}
