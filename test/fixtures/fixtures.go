package fixtures

import (
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
)

var (
	TestDonorONeg = model.DonorProfile{
		ID:             1,
		UserID:         1001,
		TenantID:       1,
		BloodGroup:     model.BloodGroupONeg,
		Location:       "Springfield",
		ContactPhone:   "+15551230001",
		IsDonor:        true,
		IsActive:       true,
		ContactVisible: true,
	}

	TestDonorAPos = model.DonorProfile{
		ID:             2,
		UserID:         1002,
		TenantID:       1,
		BloodGroup:     model.BloodGroupAPos,
		Location:       "Springfield",
		ContactPhone:   "+15551230002",
		IsDonor:        true,
		IsActive:       true,
		ContactVisible: false,
	}

	TestDonorInactive = model.DonorProfile{
		ID:           3,
		UserID:       1003,
		TenantID:     1,
		BloodGroup:   model.BloodGroupBNeg,
		Location:     "Shelbyville",
		ContactPhone: "+15551230003",
		IsDonor:      true,
		IsActive:     false,
	}
)

func NewTestRequisition(requesterID int64, group model.BloodGroup, urgency model.Urgency) *model.BloodRequisition {
	now := time.Now()
	return &model.BloodRequisition{
		RequesterID:        requesterID,
		TenantID:           1,
		PatientName:        "J. Doe",
		HospitalName:       "City General",
		BloodGroup:         group,
		UnitsNeeded:        3,
		Urgency:            urgency,
		Location:           "Springfield",
		RequiredBy:         now.Add(48 * time.Hour),
		ExpiresAt:          now.Add(48 * time.Hour),
		AllowContactReveal: true,
		Status:             model.RequisitionActive,
		CreatedAt:          now,
	}
}

func NewTestRequisitionCreateRequest(requesterID int64, group model.BloodGroup) model.RequisitionCreateRequest {
	return model.RequisitionCreateRequest{
		RequesterID:        requesterID,
		TenantID:           1,
		PatientName:        "J. Doe",
		HospitalName:       "City General",
		BloodGroup:         group,
		UnitsNeeded:        3,
		Urgency:            model.UrgencyHigh,
		Location:           "Springfield",
		RequiredBy:         time.Now().Add(48 * time.Hour),
		AllowContactReveal: true,
	}
}

func NewTestRespondRequest(donorID, requisitionID int64, kind model.ResponseKind) model.RespondRequest {
	return model.RespondRequest{
		DonorID:       donorID,
		RequisitionID: requisitionID,
		Response:      kind,
		Message:       "happy to help",
	}
}

func NewTestPushConfig(tenantID int64, sealedCredentials string) *model.TenantPushConfig {
	return &model.TenantPushConfig{
		TenantID:     tenantID,
		ProjectID:    "lifelink-test",
		Credentials:  sealedCredentials,
		DailyLimit:   1000,
		MonthlyLimit: 20000,
		IsActive:     true,
		IsConfigured: true,
	}
}

var (
	ValidBloodGroups = []model.BloodGroup{
		model.BloodGroupONeg,
		model.BloodGroupAPos,
		model.BloodGroupBNeg,
	}

	InvalidBloodGroups = []model.BloodGroup{
		"",
		"C+",
		"O",
		"a+",
	}

	ValidDeviceTokens = []string{
		"fcm-token-0001",
		"fcm-token-0002",
		"fcm-token-0003",
	}
)
