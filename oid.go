package pgbulk

// DataType is the logical type tag used to look up a codec in a Registry.
// Tags are PostgreSQL type names; array tags carry a leading underscore.
type DataType string

// ArrayOf returns the array tag for an element type, e.g. "_int4" for "int4".
func ArrayOf(elem DataType) DataType {
	return "_" + elem
}

const (
	TypeBool        DataType = "bool"
	TypeInt2        DataType = "int2"
	TypeInt4        DataType = "int4"
	TypeInt8        DataType = "int8"
	TypeFloat4      DataType = "float4"
	TypeFloat8      DataType = "float8"
	TypeNumeric     DataType = "numeric"
	TypeChar        DataType = "char"
	TypeText        DataType = "text"
	TypeVarchar     DataType = "varchar"
	TypeBpchar      DataType = "bpchar"
	TypeName        DataType = "name"
	TypeBytea       DataType = "bytea"
	TypeDate        DataType = "date"
	TypeTime        DataType = "time"
	TypeTimestamp   DataType = "timestamp"
	TypeTimestamptz DataType = "timestamptz"
	TypeInterval    DataType = "interval"
	TypeUUID        DataType = "uuid"
	TypeJSON        DataType = "json"
	TypeJSONB       DataType = "jsonb"
	TypeHstore      DataType = "hstore"
	TypePoint       DataType = "point"
	TypeLine        DataType = "line"
	TypeLseg        DataType = "lseg"
	TypeBox         DataType = "box"
	TypePath        DataType = "path"
	TypePolygon     DataType = "polygon"
	TypeCircle      DataType = "circle"
	TypeInet        DataType = "inet"
	TypeCidr        DataType = "cidr"
	TypeMacaddr     DataType = "macaddr"
	TypeMacaddr8    DataType = "macaddr8"

	TypeInt4Range DataType = "int4range"
	TypeInt8Range DataType = "int8range"
	TypeNumRange  DataType = "numrange"
	TypeDateRange DataType = "daterange"
	TypeTsRange   DataType = "tsrange"
	TypeTstzRange DataType = "tstzrange"
)

// PostgreSQL type OIDs for the built-in codecs
const (
	TypeOIDBool        = 16
	TypeOIDBytea       = 17
	TypeOIDChar        = 18
	TypeOIDName        = 19
	TypeOIDInt8        = 20
	TypeOIDInt2        = 21
	TypeOIDInt4        = 23
	TypeOIDText        = 25
	TypeOIDJSON        = 114
	TypeOIDPoint       = 600
	TypeOIDLseg        = 601
	TypeOIDPath        = 602
	TypeOIDBox         = 603
	TypeOIDPolygon     = 604
	TypeOIDLine        = 628
	TypeOIDCidr        = 650
	TypeOIDFloat4      = 700
	TypeOIDFloat8      = 701
	TypeOIDCircle      = 718
	TypeOIDMacaddr8    = 774
	TypeOIDMacaddr     = 829
	TypeOIDInet        = 869
	TypeOIDBpchar      = 1042
	TypeOIDVarchar     = 1043
	TypeOIDDate        = 1082
	TypeOIDTime        = 1083
	TypeOIDTimestamp   = 1114
	TypeOIDTimestamptz = 1184
	TypeOIDInterval    = 1186
	TypeOIDNumeric     = 1700
	TypeOIDUUID        = 2950
	TypeOIDJSONB       = 3802
	TypeOIDInt4Range   = 3904
	TypeOIDNumRange    = 3906
	TypeOIDTsRange     = 3908
	TypeOIDTstzRange   = 3910
	TypeOIDDateRange   = 3912
	TypeOIDInt8Range   = 3926
)

// arrayOIDs maps element OIDs to the OID of their one-dimensional array type.
var arrayOIDs = map[uint32]uint32{
	TypeOIDBool:        1000,
	TypeOIDBytea:       1001,
	TypeOIDChar:        1002,
	TypeOIDName:        1003,
	TypeOIDInt2:        1005,
	TypeOIDInt4:        1007,
	TypeOIDText:        1009,
	TypeOIDBpchar:      1014,
	TypeOIDVarchar:     1015,
	TypeOIDInt8:        1016,
	TypeOIDPoint:       1017,
	TypeOIDLseg:        1018,
	TypeOIDPath:        1019,
	TypeOIDBox:         1020,
	TypeOIDFloat4:      1021,
	TypeOIDFloat8:      1022,
	TypeOIDPolygon:     1027,
	TypeOIDLine:        629,
	TypeOIDCidr:        651,
	TypeOIDCircle:      719,
	TypeOIDMacaddr8:    775,
	TypeOIDMacaddr:     1040,
	TypeOIDInet:        1041,
	TypeOIDDate:        1182,
	TypeOIDTime:        1183,
	TypeOIDTimestamp:   1115,
	TypeOIDTimestamptz: 1185,
	TypeOIDInterval:    1187,
	TypeOIDNumeric:     1231,
	TypeOIDUUID:        2951,
	TypeOIDJSON:        199,
	TypeOIDJSONB:       3807,
	TypeOIDInt4Range:   3905,
	TypeOIDNumRange:    3907,
	TypeOIDTsRange:     3909,
	TypeOIDTstzRange:   3911,
	TypeOIDDateRange:   3913,
	TypeOIDInt8Range:   3927,
}

// ArrayOID returns the array type OID for an element OID, or 0 if unknown.
func ArrayOID(elem uint32) uint32 {
	return arrayOIDs[elem]
}
