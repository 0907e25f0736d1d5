package report

import (
	"fmt"
	"strconv"
	"strings"
)

// The dashboard renders in Arabic; it consumes the internal quarter
// identifiers and column names through these mappings. Pure renaming: no
// values are transformed.

var quarterNamesAr = map[string]string{
	"Q1": "الربع الأول",
	"Q2": "الربع الثاني",
	"Q3": "الربع الثالث",
	"Q4": "الربع الرابع",
}

// QuarterDisplayLabel maps an internal quarter identifier ("2025-Q3") to
// its localized display label. Unrecognized identifiers are returned
// unchanged so the dashboard still shows something identifiable.
func QuarterDisplayLabel(quarter string) string {
	parts := strings.SplitN(quarter, "-", 2)
	if len(parts) != 2 {
		return quarter
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return quarter
	}
	name, ok := quarterNamesAr[parts[1]]
	if !ok {
		return quarter
	}
	return fmt.Sprintf("%s %s", name, parts[0])
}

// ViolatorDisplaySchema maps internal violator column names to their
// localized display headers.
func ViolatorDisplaySchema() map[string]string {
	return map[string]string{
		"meter_id":                "رقم العداد",
		"quarter":                 "الربع",
		"morning_avg_scaled":      "متوسط الاستهلاك الصباحي (واط)",
		"evening_avg_scaled":      "متوسط الاستهلاك المسائي (واط)",
		"violation_category":      "تصنيف المخالفة",
		"total_energy_kwh":        "إجمالي الطاقة (ك.و.س)",
		"total_cost_sar":          "إجمالي التكلفة (ريال)",
		"total_potential_savings": "الوفورات المحتملة (ريال)",
		"region":                  "المنطقة",
		"province":                "المحافظة",
		"quality_percentage":      "نسبة جودة البيانات",
	}
}
