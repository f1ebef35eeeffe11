package controller

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/picvault/picvault-service/auth"
	"github.com/picvault/picvault-service/http/controller/dto"
	"github.com/picvault/picvault-service/utils"
)

// IssueToken exchanges a raw access/secret pair for a bearer token so that
// interactive clients do not have to sign every request.
func (ctrl *Controller) IssueToken(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.TokenRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "access_key and secret_key are required")
		return
	}

	token, expiresIn, err := ctrl.Authority.IssueToken(ctx, req.AccessKey, req.SecretKey)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			utils.JSON401(c, "Unauthorized")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Auth] Token issuance failed")
		utils.JSON500(c, "Token issuance failed")
		return
	}

	utils.JSON200(c, dto.TokenResponseDTO{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: expiresIn,
	})
}
