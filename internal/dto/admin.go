package dto

// CreateUserPayload captures POST /users.
type CreateUserPayload struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=6"`
	FirstName   string  `json:"firstName" validate:"required"`
	LastName    string  `json:"lastName"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Role        string  `json:"role" validate:"required"`
	Department  *string `json:"department,omitempty"`
}

// UpdateUserPayload captures PATCH /users/:id.
type UpdateUserPayload struct {
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Role        *string `json:"role,omitempty"`
	Department  *string `json:"department,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// CreateBlockPayload captures POST /blocks.
type CreateBlockPayload struct {
	Name string `json:"name" validate:"required"`
}

// CreateLocationPayload captures POST /locations.
type CreateLocationPayload struct {
	BlockID      string  `json:"blockId" validate:"required,uuid"`
	Name         string  `json:"name" validate:"required"`
	Floor        *int    `json:"floor,omitempty"`
	AreaType     *string `json:"areaType,omitempty"`
	DepartmentID *string `json:"departmentId,omitempty" validate:"omitempty,uuid"`
}

// UpdateLocationPayload captures PATCH /locations/:id.
type UpdateLocationPayload struct {
	Name         *string `json:"name,omitempty"`
	Floor        *int    `json:"floor,omitempty"`
	AreaType     *string `json:"areaType,omitempty"`
	DepartmentID *string `json:"departmentId,omitempty" validate:"omitempty,uuid"`
	Active       *bool   `json:"active,omitempty"`
}

// CreateDepartmentPayload captures POST /departments.
type CreateDepartmentPayload struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
}

// UpdateDepartmentPayload captures PATCH /departments/:id.
type UpdateDepartmentPayload struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CreateServicePayload captures POST /services.
type CreateServicePayload struct {
	Name             string  `json:"name" validate:"required"`
	Category         string  `json:"category" validate:"required"`
	Description      *string `json:"description,omitempty"`
	EstimatedMinutes *int    `json:"estimatedMinutes,omitempty" validate:"omitempty,min=1"`
	SLAMinutes       *int    `json:"slaMinutes,omitempty" validate:"omitempty,min=1"`
	DepartmentID     *string `json:"departmentId,omitempty" validate:"omitempty,uuid"`
}

// UpdateServicePayload captures PATCH /services/:id.
type UpdateServicePayload struct {
	Name             *string `json:"name,omitempty"`
	Category         *string `json:"category,omitempty"`
	Description      *string `json:"description,omitempty"`
	EstimatedMinutes *int    `json:"estimatedMinutes,omitempty" validate:"omitempty,min=1"`
	SLAMinutes       *int    `json:"slaMinutes,omitempty" validate:"omitempty,min=1"`
	DepartmentID     *string `json:"departmentId,omitempty" validate:"omitempty,uuid"`
	Active           *bool   `json:"active,omitempty"`
}
