package domain

import "strings"

// MaterialType is the material_type_enum of a trip.
type MaterialType string

const (
	MaterialConstructional   MaterialType = "constructional_material"
	MaterialAgricultural     MaterialType = "agricultural_products"
	MaterialIndustrial       MaterialType = "industrial_goods"
	MaterialMiningBulk       MaterialType = "mining_bulk_materials"
	MaterialConsumerGoods    MaterialType = "consumer_goods"
	MaterialPackaging        MaterialType = "logistics_packaging"
	MaterialAutomotiveFuel   MaterialType = "automotive_fuel"
	MaterialRefrigerated     MaterialType = "refrigerated_perishable_items"
	MaterialLiquidsTanker    MaterialType = "liquids_tanker_loads"
	MaterialWasteRecyclables MaterialType = "waste_recyclables"
	MaterialOthers           MaterialType = "others"
	MaterialHazardous        MaterialType = "specialized_hazardous_goods"
	MaterialUtilityEquipment MaterialType = "infrastructure_utility_equipment"
)

// MaterialTypes lists every accepted material type.
var MaterialTypes = []MaterialType{
	MaterialConstructional,
	MaterialAgricultural,
	MaterialIndustrial,
	MaterialMiningBulk,
	MaterialConsumerGoods,
	MaterialPackaging,
	MaterialAutomotiveFuel,
	MaterialRefrigerated,
	MaterialLiquidsTanker,
	MaterialWasteRecyclables,
	MaterialOthers,
	MaterialHazardous,
	MaterialUtilityEquipment,
}

// ParseMaterialType accepts only exact enum values.
func ParseMaterialType(s string) (MaterialType, bool) {
	for _, m := range MaterialTypes {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// WeightUnit is a unit accepted for material weight and truck capacity.
type WeightUnit string

const (
	UnitTon WeightUnit = "ton"
	UnitKg  WeightUnit = "kg"
	UnitLb  WeightUnit = "lb"
)

const tonsPerPound = 0.000453592

// ParseWeightUnit accepts ton, kg and lb.
func ParseWeightUnit(s string) (WeightUnit, bool) {
	switch WeightUnit(s) {
	case UnitTon, UnitKg, UnitLb:
		return WeightUnit(s), true
	}
	return "", false
}

// ConvertToTons converts value in unit to metric tons. Unknown units are
// treated as tons, which is how truck rows with a blank unit are stored.
func ConvertToTons(value float64, unit WeightUnit) float64 {
	switch WeightUnit(strings.ToLower(string(unit))) {
	case UnitKg:
		return value / 1000
	case UnitLb:
		return value * tonsPerPound
	default:
		return value
	}
}

