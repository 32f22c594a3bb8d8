package domain

import (
	"fmt"
	"strings"
)

// levelSet is the closed, ordered value set of one categorical column.
// An enum value is its index into the set.
type levelSet []string

func (l levelSet) name(code uint8) string {
	if int(code) < len(l) {
		return l[code]
	}
	return fmt.Sprintf("invalid(%d)", code)
}

func (l levelSet) code(s string) (uint8, bool) {
	for i, v := range l {
		if v == s {
			return uint8(i), true
		}
	}
	return 0, false
}

func (l levelSet) parse(column, s string) (uint8, error) {
	c, ok := l.code(s)
	if !ok {
		return 0, &LevelError{Column: column, Value: s, Levels: l.clone()}
	}
	return c, nil
}

func (l levelSet) clone() []string {
	return append([]string(nil), l...)
}

// LevelError reports a categorical value outside its permitted set.
type LevelError struct {
	Column string
	Value  string
	Levels []string
}

// Error implements the error interface
func (e *LevelError) Error() string {
	return fmt.Sprintf("%s: %q is not one of {%s}", e.Column, e.Value, strings.Join(e.Levels, ", "))
}

// Branch identifies the store branch.
type Branch uint8

const (
	BranchAlex Branch = iota
	BranchCairo
	BranchGiza
)

var branchLevels = levelSet{"Alex", "Cairo", "Giza"}

func (b Branch) String() string { return branchLevels.name(uint8(b)) }

// ParseBranch converts a cleaned branch value to its enum.
func ParseBranch(s string) (Branch, error) {
	c, err := branchLevels.parse(ColBranch, s)
	return Branch(c), err
}

// City identifies the city of the branch.
type City uint8

const (
	CityMandalay City = iota
	CityNaypyitaw
	CityYangon
)

var cityLevels = levelSet{"Mandalay", "Naypyitaw", "Yangon"}

func (c City) String() string { return cityLevels.name(uint8(c)) }

// ParseCity converts a cleaned city value to its enum.
func ParseCity(s string) (City, error) {
	c, err := cityLevels.parse(ColCity, s)
	return City(c), err
}

// CustomerType distinguishes loyalty members from walk-in customers.
// Values are the short codes produced by the string normalizer.
type CustomerType uint8

const (
	CustomerMember CustomerType = iota
	CustomerNormal
)

var customerTypeLevels = levelSet{"M", "N"}

func (c CustomerType) String() string { return customerTypeLevels.name(uint8(c)) }

// ParseCustomerType converts a short customer type code to its enum.
func ParseCustomerType(s string) (CustomerType, error) {
	c, err := customerTypeLevels.parse(ColCustomerType, s)
	return CustomerType(c), err
}

// Gender of the customer, as a short code.
type Gender uint8

const (
	GenderFemale Gender = iota
	GenderMale
)

var genderLevels = levelSet{"F", "M"}

func (g Gender) String() string { return genderLevels.name(uint8(g)) }

// ParseGender converts a short gender code to its enum.
func ParseGender(s string) (Gender, error) {
	c, err := genderLevels.parse(ColGender, s)
	return Gender(c), err
}

// ProductLine is the product category of the sale.
type ProductLine uint8

const (
	ProductElectronicAccessories ProductLine = iota
	ProductFashionAccessories
	ProductFoodAndBeverages
	ProductHealthAndBeauty
	ProductHomeAndLifestyle
	ProductSportsAndTravel
)

var productLineLevels = levelSet{
	"Electronic accessories",
	"Fashion accessories",
	"Food and beverages",
	"Health and beauty",
	"Home and lifestyle",
	"Sports and travel",
}

func (p ProductLine) String() string { return productLineLevels.name(uint8(p)) }

// ParseProductLine converts a cleaned product line to its enum.
func ParseProductLine(s string) (ProductLine, error) {
	c, err := productLineLevels.parse(ColProductLine, s)
	return ProductLine(c), err
}

// Payment is the payment method used for the sale.
type Payment uint8

const (
	PaymentCash Payment = iota
	PaymentCreditCard
	PaymentEwallet
)

var paymentLevels = levelSet{"Cash", "Credit card", "Ewallet"}

func (p Payment) String() string { return paymentLevels.name(uint8(p)) }

// ParsePayment converts a cleaned payment method to its enum.
func ParsePayment(s string) (Payment, error) {
	c, err := paymentLevels.parse(ColPayment, s)
	return Payment(c), err
}
