package generator

import "github.com/choi857/kinetic-simulator/template"

// Value pools for formatted strings
var (
	emailDomains = []string{"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "qq.com", "163.com"}

	phonePrefixes = []string{
		"130", "131", "132", "133", "134", "135", "136", "137", "138", "139",
		"150", "151", "152", "153", "155", "156", "157", "158", "159",
		"180", "181", "182", "183", "184", "185", "186", "187", "188", "189",
	}

	urlProtocols = []string{"http", "https"}
	urlDomains   = []string{"example.com", "test.com", "demo.com", "sample.com"}
	urlPaths     = []string{"api", "data", "user", "product", "order"}

	surnames   = []string{"张", "李", "王", "刘", "陈", "杨", "赵", "黄", "周", "吴"}
	givenNames = []string{"伟", "芳", "娜", "秀英", "敏", "静", "丽", "强", "磊", "军"}

	colors = []string{"red", "blue", "green", "yellow", "purple", "orange", "pink", "brown", "black", "white"}
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type intRange struct{ lo, hi int64 }

type floatRange struct {
	lo, hi float64
	// decimals kept after rounding
	places int
}

var intDefaults = map[template.TypeTag]intRange{
	template.TypeAge:    {1, 100},
	template.TypeYear:   {2000, 2024},
	template.TypeMonth:  {1, 12},
	template.TypeDay:    {1, 31},
	template.TypeHour:   {0, 23},
	template.TypeMinute: {0, 59},
	template.TypeSecond: {0, 59},
	template.TypePort:   {1024, 65535},
	template.TypeID:     {1, 1000000},
	template.TypeInt:    {0, 10000},
}

var floatDefaults = map[template.TypeTag]floatRange{
	template.TypePrice:       {0, 1000, 2},
	template.TypeRate:        {0, 100, 2},
	template.TypeScore:       {0, 10, 1},
	template.TypeTemperature: {-10, 40, 1},
	template.TypeLatitude:    {-90, 90, 6},
	template.TypeLongitude:   {-180, 180, 6},
	template.TypeDouble:      {0, 100, 2},
}

// Default window of an unbounded date
const (
	dateMinYear = 2020
	dateMaxYear = 2024
	dateMaxDay  = 28
)
