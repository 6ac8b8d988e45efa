package mydata

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"healthportal/backend/internal/config"
	"healthportal/backend/internal/models"
)

const dateLayout = "2006-01-02"

var (
	hospitals   = []string{"서울중앙의원", "동부보건의료원", "시민건강센터", "공공의료지원병원", "서부종합병원"}
	departments = []string{"내과", "가정의학과", "정형외과", "소아청소년과", "이비인후과"}
	diagnoses   = []struct{ code, name string }{
		{"J00", "급성 비인두염(감기)"},
		{"K30", "기능성 소화불량"},
		{"M54.5", "요통"},
		{"E11.9", "2형 당뇨병(합병증 없음)"},
		{"I10", "본태성 고혈압"},
	}
	medications = []string{"아세트아미노펜 500mg", "메트포르민 500mg", "로사르탄 50mg", "에소메프라졸 20mg", "레보플록사신 250mg"}
	vaccines    = []string{"인플루엔자", "코로나19", "A형간염", "B형간염", "폐렴구균"}
	allergies   = []string{"없음", "페니실린", "갑각류", "견과류", "꽃가루"}
	bloodTypes  = []string{"A+", "A-", "B+", "B-", "O+", "O-", "AB+", "AB-"}
	copayRates  = []float64{0.2, 0.3, 0.4}
	courseDays  = []int{3, 5, 7, 14, 30}
)

// Record is the mock medical data returned by the provider.
type Record struct {
	Source       string       `json:"source"`
	Profile      Profile      `json:"profile"`
	Insurance    Insurance    `json:"insurance"`
	Visits       []Visit      `json:"visits"`
	Medications  []Medication `json:"medications"`
	Checkups     Checkups     `json:"checkups"`
	Vaccinations []Shot       `json:"vaccinations"`
	CostSummary  CostSummary  `json:"costSummary"`
	Alerts       []string     `json:"alerts"`
}

type Profile struct {
	Name      string `json:"name"`
	BirthDate string `json:"birthDate"`
	Gender    string `json:"gender"`
	BloodType string `json:"bloodType"`
	Allergy   string `json:"allergy"`
}

type Insurance struct {
	Type        string  `json:"type"`
	Eligibility string  `json:"eligibility"`
	CopayRate   float64 `json:"copayRate"`
}

type Visit struct {
	Date          string `json:"date"`
	Provider      string `json:"provider"`
	Department    string `json:"department"`
	DiagnosisCode string `json:"diagnosisCode"`
	DiagnosisName string `json:"diagnosisName"`
}

type Medication struct {
	Name            string `json:"name"`
	Dose            string `json:"dose"`
	FrequencyPerDay int    `json:"frequencyPerDay"`
	Days            int    `json:"days"`
}

type Checkups struct {
	BloodPressure    string  `json:"bloodPressure"`
	FastingGlucose   int     `json:"fastingGlucose"`
	HbA1c            float64 `json:"hba1c"`
	TotalCholesterol int     `json:"totalCholesterol"`
	BMI              float64 `json:"bmi"`
}

type Shot struct {
	Name   string `json:"name"`
	Date   string `json:"date"`
	DoseNo int    `json:"doseNo"`
}

type CostSummary struct {
	Year             int           `json:"year"`
	OutOfPocketTotal int           `json:"outOfPocketTotal"`
	Monthly          []MonthlyCost `json:"monthly"`
}

type MonthlyCost struct {
	Month       string `json:"month"`
	OutOfPocket int    `json:"outOfPocket"`
}

// rng wraps a seeded source with inclusive-range helpers.
type rng struct{ *rand.Rand }

func newRNG(u *models.User) rng {
	h := fnv.New64a()
	fmt.Fprintf(h, "mydata:%d:%s:%s", u.ID, u.Username, u.Email)
	sum := h.Sum64()
	return rng{rand.New(rand.NewPCG(sum, sum>>1|1))}
}

func (r rng) between(lo, hi int) int { return lo + r.IntN(hi-lo+1) }

func (r rng) uniform(lo, hi float64) float64 {
	return math.Round((lo+r.Float64()*(hi-lo))*10) / 10
}

func pick[T any](r rng, items []T) T { return items[r.IntN(len(items))] }

// Generate builds the record for u as of today. The same user and day always
// yield the same record.
func Generate(u *models.User, today time.Time) Record {
	r := newRNG(u)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	daysAgo := func(lo, hi int) string {
		return today.AddDate(0, 0, -r.between(lo, hi)).Format(dateLayout)
	}

	age := r.between(24, 68)
	birth := time.Date(today.Year()-age, time.Month(r.between(1, 12)), r.between(1, 28), 0, 0, 0, 0, time.UTC)
	gender := "M"
	if r.IntN(2) == 1 {
		gender = "F"
	}

	rec := Record{
		Source: config.MyDataSource,
		Profile: Profile{
			Name:      u.FullName,
			BirthDate: birth.Format(dateLayout),
			Gender:    gender,
			BloodType: pick(r, bloodTypes),
		},
	}

	for i, n := 0, r.between(3, 8); i < n; i++ {
		d := pick(r, diagnoses)
		rec.Visits = append(rec.Visits, Visit{
			Date:          daysAgo(10, 360),
			Provider:      pick(r, hospitals),
			Department:    pick(r, departments),
			DiagnosisCode: d.code,
			DiagnosisName: d.name,
		})
	}
	sort.SliceStable(rec.Visits, func(i, j int) bool { return rec.Visits[i].Date > rec.Visits[j].Date })

	for i, n := 0, r.between(2, 5); i < n; i++ {
		rec.Medications = append(rec.Medications, Medication{
			Name:            pick(r, medications),
			Dose:            fmt.Sprintf("%d정", r.between(1, 2)),
			FrequencyPerDay: r.between(1, 3),
			Days:            pick(r, courseDays),
		})
	}

	for i, n := 0, r.between(1, 3); i < n; i++ {
		rec.Vaccinations = append(rec.Vaccinations, Shot{
			Name:   pick(r, vaccines),
			Date:   daysAgo(30, 400),
			DoseNo: r.between(1, 3),
		})
	}
	sort.SliceStable(rec.Vaccinations, func(i, j int) bool { return rec.Vaccinations[i].Date > rec.Vaccinations[j].Date })

	glucose := r.between(86, 130)
	hba1c := r.uniform(5.1, 7.2)
	systolic := r.between(108, 145)
	diastolic := r.between(68, 94)
	bmi := r.uniform(19.1, 29.8)
	cholesterol := r.between(155, 240)
	rec.Checkups = Checkups{
		BloodPressure:    fmt.Sprintf("%d/%d", systolic, diastolic),
		FastingGlucose:   glucose,
		HbA1c:            hba1c,
		TotalCholesterol: cholesterol,
		BMI:              bmi,
	}

	rec.CostSummary.Year = today.Year()
	for offset := 5; offset >= 0; offset-- {
		ref := today.AddDate(0, 0, -offset*30)
		cost := r.between(12000, 165000)
		rec.CostSummary.Monthly = append(rec.CostSummary.Monthly, MonthlyCost{Month: ref.Format("2006-01"), OutOfPocket: cost})
		rec.CostSummary.OutOfPocketTotal += cost
	}

	if glucose >= 110 {
		rec.Alerts = append(rec.Alerts, "공복혈당이 경계 이상입니다.")
	}
	if hba1c >= 6.5 {
		rec.Alerts = append(rec.Alerts, "당화혈색소가 높습니다.")
	}
	if systolic >= 140 || diastolic >= 90 {
		rec.Alerts = append(rec.Alerts, "혈압이 높게 측정되었습니다.")
	}
	if len(rec.Alerts) == 0 {
		rec.Alerts = append(rec.Alerts, "현재 주요 이상 징후는 없습니다.")
	}

	rec.Profile.Allergy = pick(r, allergies)
	rec.Insurance = Insurance{Type: "국민건강보험", Eligibility: "정상", CopayRate: pick(r, copayRates)}
	return rec
}
